package monitor

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/hare-lab/fieldclient/internal/model"
)

// WriteSummary renders the boxed status summary in a single write. A nil
// status prints the fetch failure line instead of the fields.
func WriteSummary(w io.Writer, status *model.ControllerStatus, monitoring bool) {
	var b bytes.Buffer
	rule := strings.Repeat("=", 60)

	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintln(&b, "SYSTEM STATUS SUMMARY")
	fmt.Fprintln(&b, rule)

	if status != nil {
		auto := "DISABLED"
		if status.AutoEnabled() {
			auto = "ENABLED"
		}
		fmt.Fprintf(&b, "Current Soil Humidity: %s%%\n", status.Moisture())
		fmt.Fprintf(&b, "Solenoid State: %s\n", status.StateUpper())
		fmt.Fprintf(&b, "Auto Irrigation: %s\n", auto)
		fmt.Fprintf(&b, "Irrigation Thresholds: Below %s%% & Above %s%%\n", status.MinText(), status.MaxText())
		fmt.Fprintf(&b, "Check Interval: %s seconds\n", status.IntervalText())
	} else {
		fmt.Fprintln(&b, "Could not fetch system status")
	}

	active := "NO"
	if monitoring {
		active = "YES"
	}
	fmt.Fprintf(&b, "Monitoring Active: %s\n", active)
	fmt.Fprintln(&b, rule)

	w.Write(b.Bytes())
}
