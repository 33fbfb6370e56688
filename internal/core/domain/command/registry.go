package command

import (
	"errors"
	"slices"
	"strings"
	"vipsscaler/internal/core/port"

	"github.com/rs/zerolog/log"
)

var (
	ErrRegistryEmpty   = errors.New("can't fetch command, registry not initialized")
	ErrCommandNotFound = errors.New("command not found")
)

type Registry struct {
	commands map[string]port.Command
}

func (r *Registry) Register(handler port.Command) {
	if r.commands == nil {
		r.commands = make(map[string]port.Command)
	}

	log.Info().Str("handler", handler.GetCommand()).Msg("adding command handler to registry")
	r.commands[handler.GetCommand()] = handler
}

func (r *Registry) Get(command string) (port.Command, error) {
	log.Debug().Str("command", command).Msg("fetching command handler from registry")

	if r.commands == nil {
		return nil, ErrRegistryEmpty
	}

	handler, ok := r.commands[command]
	if !ok {
		return nil, ErrCommandNotFound
	}

	return handler, nil
}

// ListCommands returns the registered command identifiers in lexical order.
func (r *Registry) ListCommands() []string {
	keys := make([]string, 0, len(r.commands))
	for k := range r.commands {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// ParseCommandArgs returns everything after the command word.
func ParseCommandArgs(args string) string {
	command := strings.Fields(args)
	if len(command) < 2 {
		return ""
	}

	return strings.Join(command[1:], " ")
}

// ParseCommand returns the lower-cased command word without a trailing @botname.
func ParseCommand(args string) string {
	command := strings.Fields(args)
	if len(command) == 0 {
		return ""
	}

	name, _, _ := strings.Cut(command[0], "@")

	return strings.ToLower(name)
}
