package model

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCron validates a 5 field cron expression or a descriptor (@hourly, @every 5m).
func ParseCron(expr string) error {
	e := strings.TrimSpace(expr)
	if e == "" {
		return errors.New("empty cron expression")
	}
	_, err := cronParser.Parse(e)
	return err
}

// Interval returns the schedule period, which is used to warn about
// schedules shorter than a typical workspace lint.
func (s Schedule) Interval(now time.Time) (time.Duration, error) {
	if s.Cron != "" {
		sched, err := cronParser.Parse(strings.TrimSpace(s.Cron))
		if err != nil {
			return 0, fmt.Errorf("parsing cron: %w", err)
		}
		next := sched.Next(now)
		return sched.Next(next).Sub(next), nil
	}
	if s.Duration != "" {
		return ParseISODuration(s.Duration)
	}
	return 0, errors.New("both cron and duration are empty")
}

var isoDurationRx = regexp.MustCompile(`^P(?:(?P<day>\d+)D)?(?:T(?:(?P<hour>\d+)H)?(?:(?P<minute>\d+)M)?(?:(?P<second>\d+(?:[.,]\d+)?)S)?)?$`)

var ErrISOFormat = errors.New("invalid ISO8601 duration")

// ParseISODuration parses the day and time part of ISO8601 durations (P1D, PT15M, P1DT2H30S).
// Years, months and weeks are rejected as they have no fixed length.
func ParseISODuration(dur string) (time.Duration, error) {
	if dur == "" || dur == "P" || strings.HasSuffix(dur, "T") {
		return 0, ErrISOFormat
	}
	match := isoDurationRx.FindStringSubmatch(dur)
	if match == nil {
		return 0, ErrISOFormat
	}

	var ret time.Duration
	for i, name := range isoDurationRx.SubexpNames() {
		part := match[i]
		if i == 0 || name == "" || part == "" {
			continue
		}
		var unit time.Duration
		switch name {
		case "day":
			unit = 24 * time.Hour
		case "hour":
			unit = time.Hour
		case "minute":
			unit = time.Minute
		case "second":
			unit = time.Second
		}
		f, err := strconv.ParseFloat(strings.Replace(part, ",", ".", 1), 64)
		if err != nil {
			return 0, fmt.Errorf("parsing %s: %w", name, err)
		}
		add := f * float64(unit)
		if add > float64(math.MaxInt64)-float64(ret) {
			return 0, errors.New("duration overflow")
		}
		ret += time.Duration(add)
	}
	return ret, nil
}
