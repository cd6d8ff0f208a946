// Package security manages the per-quiz anti-cheating and geofence record.
// The record is edited locally and saved to the backend wholesale.
package security

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-player/internal/apiclient"
	"github.com/stemsi/exstem-player/internal/model"
	"github.com/stemsi/exstem-player/internal/validator"
)

// API is the slice of the backend client the controller needs.
type API interface {
	GetSecurityConfig(ctx context.Context, quizID string) (*model.SecurityConfig, error)
	CreateSecurityConfig(ctx context.Context, cfg *model.SecurityConfig) (*model.SecurityConfig, error)
	UpdateSecurityConfig(ctx context.Context, cfg *model.SecurityConfig) (*model.SecurityConfig, error)
}

// Controller holds one quiz's security record and its unsaved edits.
type Controller struct {
	api     API
	locator Locator
	log     zerolog.Logger

	mu     sync.Mutex
	quizID string
	cfg    *model.SecurityConfig
	dirty  bool
	// edits counts changes to cfg; Save uses it to spot edits made while
	// the request was in flight.
	edits uint64
}

// NewController builds a controller. locator may be nil when the device has
// no location capability.
func NewController(api API, locator Locator, log zerolog.Logger) *Controller {
	return &Controller{
		api:     api,
		locator: locator,
		log:     log.With().Str("component", "security").Logger(),
	}
}

// Load fetches the record. A 404 means nothing is configured yet and yields
// the defaults.
func (c *Controller) Load(ctx context.Context, quizID string) (model.SecurityConfig, error) {
	cfg, err := c.api.GetSecurityConfig(ctx, quizID)
	if err != nil {
		if !apiclient.IsNotFound(err) {
			c.log.Warn().Err(err).Str("quiz_id", quizID).Msg("Failed to load security config")
			return model.SecurityConfig{}, &LoadError{QuizID: quizID, Err: err}
		}
		def := model.DefaultSecurityConfig(quizID)
		cfg = &def
		c.log.Debug().Str("quiz_id", quizID).Msg("No security config yet, using defaults")
	}
	if cfg.QuizID == "" {
		cfg.QuizID = quizID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.quizID = quizID
	c.cfg = cfg
	c.dirty = false
	c.edits++
	return copyConfig(cfg), nil
}

// Config returns a copy of the current, possibly unsaved, record.
func (c *Controller) Config() (model.SecurityConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg == nil {
		return model.SecurityConfig{}, ErrNotLoaded
	}
	return copyConfig(c.cfg), nil
}

// Dirty reports unsaved edits.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Update applies a form edit. The quiz id and backend id cannot be changed.
func (c *Controller) Update(edit func(cfg *model.SecurityConfig)) (model.SecurityConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg == nil {
		return model.SecurityConfig{}, ErrNotLoaded
	}
	next := copyConfig(c.cfg)
	edit(&next)
	next.QuizID = c.cfg.QuizID
	next.ID = c.cfg.ID
	c.cfg = &next
	c.dirty = true
	c.edits++
	return copyConfig(c.cfg), nil
}

// UseCurrentLocationAsCenter asks the locator once and, on success, moves the
// geofence center to the device position.
func (c *Controller) UseCurrentLocationAsCenter(ctx context.Context) (model.Location, error) {
	c.mu.Lock()
	loaded := c.cfg != nil
	c.mu.Unlock()
	if !loaded {
		return model.Location{}, ErrNotLoaded
	}
	if c.locator == nil {
		return model.Location{}, &LocationError{Err: ErrLocationUnavailable}
	}

	loc, err := c.locator.Locate(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("Location query failed")
		return model.Location{}, &LocationError{Err: err}
	}

	_, err = c.Update(func(cfg *model.SecurityConfig) {
		lat, lon := loc.Latitude, loc.Longitude
		cfg.Latitude = &lat
		cfg.Longitude = &lon
	})
	if err != nil {
		return model.Location{}, err
	}
	return loc, nil
}

// Save validates the record and, if it passes, POSTs it (no backend id yet)
// or PUTs it. A *ValidationError means nothing was sent.
func (c *Controller) Save(ctx context.Context) (model.SecurityConfig, error) {
	c.mu.Lock()
	if c.cfg == nil {
		c.mu.Unlock()
		return model.SecurityConfig{}, ErrNotLoaded
	}
	pending := copyConfig(c.cfg)
	gen := c.edits
	c.mu.Unlock()

	if fields := validator.Struct(&pending); fields != nil {
		return model.SecurityConfig{}, &ValidationError{Fields: fields}
	}

	var (
		saved *model.SecurityConfig
		err   error
	)
	if pending.ID == nil {
		saved, err = c.api.CreateSecurityConfig(ctx, &pending)
	} else {
		saved, err = c.api.UpdateSecurityConfig(ctx, &pending)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("quiz_id", pending.QuizID).Msg("Failed to save security config")
		return model.SecurityConfig{}, &SaveError{QuizID: pending.QuizID, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.Info().
		Str("quiz_id", saved.QuizID).
		Bool("geofencing", saved.GeofencingEnabled).
		Msg("Security config saved")
	if c.edits != gen {
		// Edited during the request: keep those edits unsaved but adopt the
		// backend id so the next save is an update.
		if c.cfg.ID == nil && saved.ID != nil {
			id := *saved.ID
			c.cfg.ID = &id
		}
		return copyConfig(c.cfg), nil
	}
	c.cfg = saved
	c.dirty = false
	return copyConfig(saved), nil
}

// Contains reports whether a point lies inside the configured geofence. With
// geofencing disabled every point is allowed.
func (c *Controller) Contains(lat, lon float64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg == nil {
		return false, ErrNotLoaded
	}
	return Contains(c.cfg, lat, lon), nil
}

// Contains checks a point against cfg's circle.
func Contains(cfg *model.SecurityConfig, lat, lon float64) bool {
	if !cfg.GeofencingEnabled {
		return true
	}
	if cfg.Latitude == nil || cfg.Longitude == nil {
		return false
	}
	return DistanceMeters(*cfg.Latitude, *cfg.Longitude, lat, lon) <= float64(cfg.RadiusMeters)
}

func copyConfig(cfg *model.SecurityConfig) model.SecurityConfig {
	out := *cfg
	if cfg.ID != nil {
		id := *cfg.ID
		out.ID = &id
	}
	if cfg.Latitude != nil {
		lat := *cfg.Latitude
		out.Latitude = &lat
	}
	if cfg.Longitude != nil {
		lon := *cfg.Longitude
		out.Longitude = &lon
	}
	return out
}
