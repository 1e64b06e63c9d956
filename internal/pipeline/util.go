package pipeline

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func unknownTarget(t string) error {
	return eris.Errorf("pipeline: unknown fetch target %q (want one of %s)", t, strings.Join(Targets, ", "))
}
