package bot

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// errUsage marks argument errors that should be answered with the command's
// usage line rather than a failure message.
var errUsage = errors.New("bad arguments")

type trackArgs struct {
	url      string
	interval time.Duration
	night    bool
}

// parseTrackArgs parses "<url> <minutes> [night]".
func parseTrackArgs(raw string) (trackArgs, error) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return trackArgs{}, errUsage
	}

	minutes, err := strconv.Atoi(fields[1])
	if err != nil || minutes <= 0 {
		return trackArgs{}, errUsage
	}

	night := len(fields) > 2 && strings.EqualFold(fields[2], "night")

	return trackArgs{
		url:      fields[0],
		interval: time.Duration(minutes) * time.Minute,
		night:    night,
	}, nil
}

// parseURLArg parses a single URL argument.
func parseURLArg(raw string) (string, error) {
	fields := strings.Fields(raw)
	if len(fields) != 1 {
		return "", errUsage
	}
	return fields[0], nil
}

// parseIDArg parses a single numeric Telegram ID argument.
func parseIDArg(raw string) (int64, error) {
	fields := strings.Fields(raw)
	if len(fields) != 1 {
		return 0, errUsage
	}

	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id == 0 {
		return 0, errUsage
	}
	return id, nil
}
