package logsvc

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/mahudhurio/core"
)

const (
	levelDebug    = "debug"
	levelInfo     = "info"
	levelWarn     = "warn"
	levelError    = "error"
	levelCritical = "critical"
)

var reporters = map[string]func(...interface{}){
	levelDebug:    rollbar.Debug,
	levelInfo:     rollbar.Info,
	levelWarn:     rollbar.Warning,
	levelError:    rollbar.Error,
	levelCritical: rollbar.Critical,
}

// RollbarLogger prints to a *log.Logger and reports to rollbar.
// Debug messages are only printed in debug mode.
type RollbarLogger struct {
	std     *log.Logger
	verbose bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std, verbose: conf.Debug}
}

// New returns a RollbarLogger printing to stdout with prefix, reporting to rollbar outside of debug & test modes.
func New(prefix string, conf *core.Config) *RollbarLogger {
	logger := NewRollbarLogger(log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!(conf.Debug || conf.TestMode))
	return logger
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare builds the rollbar args: msg, then every arg but the first core.Identity, which becomes the rollbar person.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var person *core.Identity
	out := []interface{}{msg}
	for _, arg := range args {
		id, ok := arg.(core.Identity)
		if !ok {
			out = append(out, arg)
			continue
		}
		if person == nil && id.ID != "" {
			person = &id
		}
	}
	if person != nil {
		rollbar.SetPerson(person.ID, person.Username, person.Email)
	} else {
		rollbar.ClearPerson()
	}
	return out
}

func (l RollbarLogger) log(level, msg string, args []interface{}) {
	reporters[level](l.prepare(msg, args)...)
	if level == levelDebug && !l.verbose {
		return
	}

	var sb strings.Builder
	sb.WriteString("[" + strings.ToUpper(level) + "] " + msg)
	for _, arg := range args {
		if _, ok := arg.(core.Identity); ok {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(l.std.Prefix())
		sb.WriteString(sprintArg(arg))
	}
	_ = l.std.Output(3, sb.String()) // caller of Debug, Info...
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(levelDebug, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.log(levelInfo, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.log(levelWarn, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(levelError, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(levelCritical, msg, args)
	rollbar.Wait()
	os.Exit(1)
}

// sprintArg formats errors with their stack trace when they carry one.
func sprintArg(arg interface{}) string {
	if err, ok := arg.(error); ok {
		return fmt.Sprintf("%+v", err)
	}
	return fmt.Sprintf("%v", arg)
}
