package bootstrap

import (
	"solace/internal/api"
	"solace/internal/auth"
	"solace/internal/clock"
	"solace/internal/config"
	"solace/internal/media"
	"solace/internal/ports"
	"solace/internal/session"
	"solace/internal/tokenstore"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *session.Controller
	Auth       *auth.Flow
	Backend    ports.WellnessAPI
	Tokens     ports.TokenStore
	Config     config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	tokens := tokenstore.NewFileStore(cfg.Storage.TokenPath)

	backend := api.NewClient(api.Config{
		BaseURL:       cfg.API.BaseURL,
		AuthTimeout:   cfg.API.AuthTimeout,
		LookupTimeout: cfg.API.LookupTimeout,
		ListTimeout:   cfg.API.ListTimeout,
		UploadTimeout: cfg.API.UploadTimeout,
	})

	controller := session.NewController(
		media.NewFFMPEGCapture(cfg.Media.RecorderCommand),
		backend,
		tokens,
		clock.System(),
		eventSink,
		session.Config{
			Media: ports.MediaConfig{
				Command:          cfg.Media.RecorderCommand,
				VideoInputFormat: cfg.Media.VideoInputFormat,
				VideoDevice:      cfg.Media.VideoDevice,
				AudioInputFormat: cfg.Media.AudioInputFormat,
				AudioDevice:      cfg.Media.AudioDevice,
				Width:            cfg.Media.Width,
				Height:           cfg.Media.Height,
				Framerate:        cfg.Media.Framerate,
			},
			RecordLimitSeconds: cfg.Session.RecordLimitSeconds,
			StartDelay:         cfg.Session.StartDelay,
			CloseDelay:         cfg.Session.CloseDelay,
			ChunkSize:          cfg.Session.ChunkSize,
			Notes:              cfg.Session.Notes,
		},
	)

	return Services{
		Controller: controller,
		Auth:       auth.NewFlow(backend, tokens),
		Backend:    backend,
		Tokens:     tokens,
		Config:     cfg,
	}, nil
}
