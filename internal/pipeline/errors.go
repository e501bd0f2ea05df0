package pipeline

import "errors"

// ErrNoSnapshot is returned when Search is called before any snapshot has
// been published (the process is still starting up).
var ErrNoSnapshot = errors.New("pipeline: no snapshot published yet")
