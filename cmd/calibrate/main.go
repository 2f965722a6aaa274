//go:build windows

// Command calibrate prints the engine's monitor/DPI model so a setup
// script can sanity-check multi-monitor layout before a session
// starts, then walks the cursor across each monitor's corners and
// center so the operator can visually confirm logical-to-physical
// conversion landed where expected.
package main

import (
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/windowspilot/engine"
)

func main() {
	fmt.Println("=== Monitor Calibration ===")

	vs := engine.EnumerateMonitors()
	fmt.Printf("Virtual screen bounds: %+v\n\n", vs.Bounds)

	for _, m := range vs.Monitors {
		fmt.Printf("Monitor %d %s primary=%v scale=%.2f\n", m.Index, m.DeviceName, m.Primary, m.ScaleFactor)
		fmt.Printf("  physical: %+v\n", m.PhysicalRect)
		fmt.Printf("  logical:  %+v\n", m.LogicalRect)
		fmt.Printf("  work area: %+v\n", m.WorkArea)
	}

	fmt.Println("\n=== Walking cursor to each monitor's corners and center in 3 seconds ===")
	time.Sleep(3 * time.Second)

	for _, m := range vs.Monitors {
		points := []struct {
			name string
			p    engine.Point
		}{
			{"top-left", engine.Point{X: m.LogicalRect.X + 20, Y: m.LogicalRect.Y + 20}},
			{"center", m.LogicalRect.Center()},
			{"bottom-right", engine.Point{X: m.LogicalRect.X + m.LogicalRect.Width - 20, Y: m.LogicalRect.Y + m.LogicalRect.Height - 20}},
		}
		for _, pt := range points {
			phys := engine.LogicalToPhysical(m, pt.p)
			fmt.Printf("monitor %d %s: logical(%d,%d) -> physical(%d,%d)\n", m.Index, pt.name, pt.p.X, pt.p.Y, phys.X, phys.Y)
			robotgo.Move(phys.X, phys.Y)
			time.Sleep(500 * time.Millisecond)
		}
	}

	fmt.Println("\nDone. If the cursor did not land on the printed corners/center of each physical monitor, scale factor detection is off for that display.")
}
