package endpoint

import (
	"fmt"

	"github.com/ariebrainware/sehatec/storage"
	"github.com/ariebrainware/sehatec/util"
	"github.com/gin-gonic/gin"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

type ThemeRequest struct {
	Theme string `json:"theme" example:"dark"`
}

// GetTheme returns the stored theme preference, light by default.
func GetTheme(c *gin.Context) {
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}

	theme := ThemeLight
	found, err := storage.LoadJSON(c.Request.Context(), svc.Storage, storage.KeyTheme, &theme)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to read theme", Err: err})
		return
	}
	if !found || (theme != ThemeLight && theme != ThemeDark) {
		theme = ThemeLight
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Theme retrieved",
		Data: map[string]interface{}{"theme": theme},
	})
}

// SetTheme stores "dark" or "light".
func SetTheme(c *gin.Context) {
	var req ThemeRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if req.Theme != ThemeLight && req.Theme != ThemeDark {
		util.CallUserError(c, util.APIErrorParams{Msg: "Theme must be dark or light", Err: fmt.Errorf("unknown theme %q", req.Theme)})
		return
	}
	svc, ok := servicesOrRespond(c)
	if !ok {
		return
	}

	if err := storage.SaveJSON(c.Request.Context(), svc.Storage, storage.KeyTheme, req.Theme); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to save theme", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Theme saved",
		Data: map[string]interface{}{"theme": req.Theme},
	})
}
