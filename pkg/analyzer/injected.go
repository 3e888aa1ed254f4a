package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	simulatedPattern   = regexp.MustCompile(`Simulating missed input\s*\(([^)]+)\)`)
	inputCountsPattern = regexp.MustCompile(`Mouse:\s*(\d+)/R(\d+)/I(\d+)/LI(\d+)\s+Keyboard:\s*(\d+)/R(\d+)/I(\d+)/LI(\d+)`)
)

// extractInjected returns the injected-input records found in one line.
// A line may report both a simulated device and injected counters.
func extractInjected(e Event) []InjectedInput {
	var out []InjectedInput
	line := e.Raw

	if strings.Contains(line, "Simulating missed input") {
		detail := "Unknown device causing unrecognized input"
		if m := simulatedPattern.FindStringSubmatch(line); m != nil {
			detail = m[1]
		}
		out = append(out, InjectedInput{Event: e, InputType: InputSimulated, Detail: detail})
	}

	if strings.Contains(line, "WindowsInput.cpp") && strings.Contains(line, "Mouse:") && strings.Contains(line, "Keyboard:") {
		if in, ok := parseInputCounters(e); ok {
			out = append(out, in)
		}
	}
	return out
}

// parseInputCounters reads the per-device real/injected/low-integrity
// counters and reports ok only when some input was injected.
func parseInputCounters(e Event) (InjectedInput, bool) {
	m := inputCountsPattern.FindStringSubmatch(e.Raw)
	if m == nil {
		return InjectedInput{}, false
	}
	n := func(i int) int {
		v, _ := strconv.Atoi(m[i])
		return v
	}

	in := InjectedInput{
		Event:                e,
		InputType:            InputInjected,
		MouseReal:            n(2),
		MouseInjected:        n(3),
		MouseLowIntegrity:    n(4),
		KeyboardReal:         n(6),
		KeyboardInjected:     n(7),
		KeyboardLowIntegrity: n(8),
	}

	mouseSynthetic := in.MouseInjected > 0 || in.MouseLowIntegrity > 0
	kbSynthetic := in.KeyboardInjected > 0 || in.KeyboardLowIntegrity > 0
	if !mouseSynthetic && !kbSynthetic {
		return InjectedInput{}, false
	}

	in.OnlyInjected = mouseSynthetic && in.MouseReal == 0 && kbSynthetic && in.KeyboardReal == 0
	if in.OnlyInjected {
		in.Detail = fmt.Sprintf("Only injected - Mouse: I%d/LI%d, Keyboard: I%d/LI%d",
			in.MouseInjected, in.MouseLowIntegrity, in.KeyboardInjected, in.KeyboardLowIntegrity)
	} else {
		in.Detail = fmt.Sprintf("Injected - Mouse: R%d/I%d/LI%d, Keyboard: R%d/I%d/LI%d",
			in.MouseReal, in.MouseInjected, in.MouseLowIntegrity,
			in.KeyboardReal, in.KeyboardInjected, in.KeyboardLowIntegrity)
	}
	return in, true
}
