package internal

import "github.com/starford/fieldwork/internal/notify"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	scheduler notify.Scheduler
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithScheduler sets the reminder-scheduling collaborator. Defaults to the
// logging scheduler when no platform bridge is attached.
func WithScheduler(s notify.Scheduler) Option {
	return func(a *application) {
		a.scheduler = s
	}
}
