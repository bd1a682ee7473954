// Package notify delivers transient user notifications. The desktop
// implementation sends platform toasts through beeep; the engine treats all
// of them as fire-and-forget.
package notify

import (
	"github.com/gen2brain/beeep"
	"github.com/starmarkhq/starmark/internal/host"
	"go.uber.org/zap"
)

const appTitle = "Starmark"

// Desktop is a host.Toaster backed by the platform notification service.
// Delivery failures are logged and otherwise swallowed.
type Desktop struct {
	logger *zap.Logger
}

// NewDesktop creates a desktop toaster.
func NewDesktop(logger *zap.Logger) *Desktop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Desktop{logger: logger}
}

var _ host.Toaster = (*Desktop)(nil)

func (d *Desktop) Success(msg string) { d.send("success", msg) }
func (d *Desktop) Error(msg string)   { d.send("error", msg) }
func (d *Desktop) Info(msg string)    { d.send("info", msg) }
func (d *Desktop) Warning(msg string) { d.send("warning", msg) }

func (d *Desktop) send(level, msg string) {
	if err := beeep.Notify(appTitle, msg, ""); err != nil {
		d.logger.Warn("notification delivery failed",
			zap.String("level", level), zap.String("message", msg), zap.Error(err))
	} else {
		d.logger.Debug("notification sent", zap.String("level", level), zap.String("message", msg))
	}
}

// Nop is a host.Toaster that drops everything. Used when the process runs
// headless.
type Nop struct{}

var _ host.Toaster = Nop{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}
func (Nop) Info(string)    {}
func (Nop) Warning(string) {}
