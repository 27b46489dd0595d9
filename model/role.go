package model

// Role decides which view and repository operations a session may use.
type Role string

const (
	RoleDoctor     Role = "doctor"
	RolePharmacist Role = "pharmacist"
	RolePatient    Role = "patient"
)

// Tab is a sub-view inside a role view.
type Tab string

const (
	TabDashboard     Tab = "dashboard"
	TabAddPatient    Tab = "add-patient"
	TabSearch        Tab = "search"
	TabPrescriptions Tab = "prescriptions"
	TabOverview      Tab = "overview"
	TabChatbot       Tab = "chatbot"
)

var roleTabs = map[Role][]Tab{
	RoleDoctor:     {TabDashboard, TabAddPatient, TabSearch, TabPrescriptions},
	RolePharmacist: {TabSearch},
	RolePatient:    {TabOverview, TabPrescriptions, TabChatbot},
}

// IsValid reports whether r is one of the three known roles.
func (r Role) IsValid() bool {
	_, ok := roleTabs[r]
	return ok
}

// IsProfessional reports whether r signs in with an account (doctor or pharmacist).
func (r Role) IsProfessional() bool {
	return r == RoleDoctor || r == RolePharmacist
}

// Tabs lists the sub-views of the role in navigation order.
func (r Role) Tabs() []Tab {
	tabs := roleTabs[r]
	out := make([]Tab, len(tabs))
	copy(out, tabs)
	return out
}

// DefaultTab is the view a role lands on after login.
func (r Role) DefaultTab() Tab {
	tabs := roleTabs[r]
	if len(tabs) == 0 {
		return ""
	}
	return tabs[0]
}

// HasTab reports whether tab belongs to the role's view.
func (r Role) HasTab(tab Tab) bool {
	for _, t := range roleTabs[r] {
		if t == tab {
			return true
		}
	}
	return false
}
