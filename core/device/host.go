package device

import (
	"fmt"
	"os"
	"runtime"
	"time"
)

var getenv = os.Getenv // mockable

// HostEnvironment describes the machine the tracking agent runs on.
type HostEnvironment struct {
	AppName string
	Build   string
}

var _ Environment = HostEnvironment{}

func (h HostEnvironment) Attributes() Attributes {
	return Attributes{
		UserAgent: fmt.Sprintf("%s-tracker/%s (%s; %s) %s", h.AppName, h.Build, runtime.GOOS, runtime.GOARCH, runtime.Version()),
		Language:  hostLocale(),
		Timezone:  hostTimezone(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// hostLocale follows the POSIX precedence: LC_ALL, LC_MESSAGES, LANG.
func hostLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func hostTimezone() string {
	if tz := getenv("TZ"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc.String()
		}
	}
	if name := time.Local.String(); name != "" && name != "Local" {
		return name
	}
	zone, _ := nowFunc().Zone()
	return zone
}
