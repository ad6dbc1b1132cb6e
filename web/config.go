package web

import "time"

type Config struct {
	Addr           string        `default:":8501"`
	AllowedOrigins []string      `split_words:"true"`
	ReadTimeout    time.Duration `split_words:"true" default:"15s"`
	// Runs can take several model calls, so writes get a long deadline.
	WriteTimeout time.Duration `split_words:"true" default:"10m"`
	MaxBodyBytes int64         `split_words:"true" default:"1048576"`

	// Conversations untouched for SessionIdle are dropped.
	SessionIdle time.Duration `split_words:"true" default:"2h"`
}
