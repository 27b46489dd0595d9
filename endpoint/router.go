package endpoint

import (
	"fmt"
	"net/http"

	"github.com/ariebrainware/sehatec/middleware"
	"github.com/ariebrainware/sehatec/model"
	"github.com/gin-gonic/gin"
)

// NewRouter wires every route of the service onto a fresh gin engine.
func NewRouter(appName string, svc *middleware.Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.ServiceMiddleware(svc))
	router.Use(middleware.EndpointCallLogger())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", appName),
		})
	})

	limiter := middleware.RateLimiter(middleware.RateLimitConfig{})
	router.POST("/signup", limiter, Signup)
	router.POST("/login", limiter, Login)

	router.GET("/preferences/theme", GetTheme)
	router.PUT("/preferences/theme", SetTheme)

	signedIn := router.Group("/", middleware.RequireRole())
	signedIn.DELETE("/logout", Logout)
	signedIn.GET("/session", GetSession)
	signedIn.PUT("/session/tab", SwitchTab)

	doctor := router.Group("/doctor", middleware.RequireRole(model.RoleDoctor))
	doctor.GET("/dashboard", DoctorDashboard)
	doctor.GET("/patients", ListPatients)
	doctor.POST("/patients", CreatePatient)
	doctor.GET("/patients/:nid", SearchPatient)
	doctor.POST("/patients/:nid/prescriptions", IssuePrescription)

	pharmacist := router.Group("/pharmacist", middleware.RequireRole(model.RolePharmacist))
	pharmacist.GET("/patients/:nid", PharmacistLookup)
	pharmacist.POST("/patients/:nid/dispense", DispensePrescription)

	patient := router.Group("/patient", middleware.RequireRole(model.RolePatient))
	patient.GET("/overview", PatientOverview)
	patient.GET("/prescriptions", PatientPrescriptions)
	patient.POST("/prescriptions/:id/uploads", UploadPrescriptionFile)
	patient.GET("/chat", GetChat)
	patient.POST("/chat", AskChat)

	return router
}
