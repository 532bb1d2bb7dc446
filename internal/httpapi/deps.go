package httpapi

import (
	"sync/atomic"

	"jobportal/internal/config"
	"jobportal/internal/events"
	"jobportal/internal/state"
	"jobportal/internal/validate"
	"jobportal/internal/view"
)

type Deps struct {
	Store    *state.Store
	Renderer *view.Renderer
	Hub      *events.Hub

	// Atomic stores
	CfgVal    *atomic.Value                       // stores config.Config
	Validator *atomic.Pointer[validate.Validator] // rebuilt when validation rules change

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// OnConfig runs after a saved config has been reloaded. Optional.
	OnConfig func(config.Config)
}
