package validator

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	"github.com/stemsi/exstem-player/internal/model"
)

const (
	tagGeofenceCenter = "geofence_center"
	tagGeofenceRadius = "geofence_radius"
)

func registerRules(v *govalidator.Validate, tr ut.Translator) {
	v.RegisterStructValidation(geofenceRule, model.SecurityConfig{})

	_ = v.RegisterTranslation(tagGeofenceCenter, tr,
		func(t ut.Translator) error {
			return t.Add(tagGeofenceCenter, "{0} is required when geofencing is enabled", true)
		},
		func(t ut.Translator, fe govalidator.FieldError) string {
			msg, _ := t.T(tagGeofenceCenter, fe.Field())
			return msg
		})

	_ = v.RegisterTranslation(tagGeofenceRadius, tr,
		func(t ut.Translator) error {
			return t.Add(tagGeofenceRadius, "{0} must be between {1} and {2} meters", true)
		},
		func(t ut.Translator, fe govalidator.FieldError) string {
			msg, _ := t.T(tagGeofenceRadius, fe.Field(),
				fmt.Sprint(model.MinGeofenceRadiusMeters), fmt.Sprint(model.MaxGeofenceRadiusMeters))
			return msg
		})
}

// geofenceRule enforces that an enabled geofence has a center and a sane radius.
func geofenceRule(sl govalidator.StructLevel) {
	cfg := sl.Current().Interface().(model.SecurityConfig)
	if !cfg.GeofencingEnabled {
		return
	}
	if cfg.Latitude == nil {
		sl.ReportError(cfg.Latitude, "latitude", "Latitude", tagGeofenceCenter, "")
	}
	if cfg.Longitude == nil {
		sl.ReportError(cfg.Longitude, "longitude", "Longitude", tagGeofenceCenter, "")
	}
	if cfg.RadiusMeters < model.MinGeofenceRadiusMeters || cfg.RadiusMeters > model.MaxGeofenceRadiusMeters {
		sl.ReportError(cfg.RadiusMeters, "radius_meters", "RadiusMeters", tagGeofenceRadius, "")
	}
}
