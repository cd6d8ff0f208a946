package model

// SecurityConfig mirrors the backend's anti-cheating / geofence record for a
// quiz or assignment. It is saved wholesale; there is no partial patch.
type SecurityConfig struct {
	ID     *string `json:"id,omitempty"`
	QuizID string  `json:"quiz_id" binding:"required"`

	GeofencingEnabled    bool `json:"geofencing_enabled"`
	PreventTabSwitch     bool `json:"prevent_tab_switch"`
	PreventCopyPaste     bool `json:"prevent_copy_paste"`
	BlockMultipleDevices bool `json:"block_multiple_devices"`
	RequireFullscreen    bool `json:"require_fullscreen"`
	DisableRightClick    bool `json:"disable_right_click"`
	ShuffleQuestions     bool `json:"shuffle_questions"`

	Latitude             *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude            *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	RadiusMeters         int      `json:"radius_meters" binding:"gte=0"`
	CheckIntervalSeconds int      `json:"check_interval_seconds" binding:"gte=5,lte=3600"`
	GracePeriodSeconds   int      `json:"grace_period_seconds" binding:"gte=0,lte=600"`
	MaxWarnings          int      `json:"max_warnings" binding:"gte=0,lte=20"`
}

// Geofence radius bounds enforced when geofencing is enabled.
const (
	MinGeofenceRadiusMeters = 10
	MaxGeofenceRadiusMeters = 5000
)

// DefaultSecurityConfig is used when the backend has no record yet.
func DefaultSecurityConfig(quizID string) SecurityConfig {
	return SecurityConfig{
		QuizID:               quizID,
		RadiusMeters:         100,
		CheckIntervalSeconds: 30,
		GracePeriodSeconds:   10,
		MaxWarnings:          3,
	}
}

// Location is a single device position fix.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// GeofenceCheckRequest is a point to test against the form's geofence.
type GeofenceCheckRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
}

// SecurityPatchRequest carries form edits from the view. Nil fields are left
// untouched; the record is still saved wholesale later.
type SecurityPatchRequest struct {
	GeofencingEnabled    *bool    `json:"geofencing_enabled"`
	PreventTabSwitch     *bool    `json:"prevent_tab_switch"`
	PreventCopyPaste     *bool    `json:"prevent_copy_paste"`
	BlockMultipleDevices *bool    `json:"block_multiple_devices"`
	RequireFullscreen    *bool    `json:"require_fullscreen"`
	DisableRightClick    *bool    `json:"disable_right_click"`
	ShuffleQuestions     *bool    `json:"shuffle_questions"`
	Latitude             *float64 `json:"latitude"`
	Longitude            *float64 `json:"longitude"`
	RadiusMeters         *int     `json:"radius_meters"`
	CheckIntervalSeconds *int     `json:"check_interval_seconds"`
	GracePeriodSeconds   *int     `json:"grace_period_seconds"`
	MaxWarnings          *int     `json:"max_warnings"`
}

// Apply copies the non-nil fields of p onto cfg.
func (p *SecurityPatchRequest) Apply(cfg *SecurityConfig) {
	setBool(&cfg.GeofencingEnabled, p.GeofencingEnabled)
	setBool(&cfg.PreventTabSwitch, p.PreventTabSwitch)
	setBool(&cfg.PreventCopyPaste, p.PreventCopyPaste)
	setBool(&cfg.BlockMultipleDevices, p.BlockMultipleDevices)
	setBool(&cfg.RequireFullscreen, p.RequireFullscreen)
	setBool(&cfg.DisableRightClick, p.DisableRightClick)
	setBool(&cfg.ShuffleQuestions, p.ShuffleQuestions)
	setInt(&cfg.RadiusMeters, p.RadiusMeters)
	setInt(&cfg.CheckIntervalSeconds, p.CheckIntervalSeconds)
	setInt(&cfg.GracePeriodSeconds, p.GracePeriodSeconds)
	setInt(&cfg.MaxWarnings, p.MaxWarnings)
	if p.Latitude != nil {
		lat := *p.Latitude
		cfg.Latitude = &lat
	}
	if p.Longitude != nil {
		lon := *p.Longitude
		cfg.Longitude = &lon
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// SecurityConfigState is the form as shown to views.
type SecurityConfigState struct {
	Config SecurityConfig `json:"config"`
	Dirty  bool           `json:"dirty"`
}
