package circuit

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/aristath/quantumlab/internal/quantum"
)

// Pre-compiled patterns for the QASM line parser.
var (
	qregRegex     = regexp.MustCompile(`^qreg\s+q\[(\d+)\];?$`)
	cregRegex     = regexp.MustCompile(`^creg\s+c\[(\d+)\];?$`)
	gateRegex     = regexp.MustCompile(`^(\w+)\s*(?:\(([^)]*)\))?\s+q\[(\d+)\](?:\s*,\s*q\[(\d+)\])?;?$`)
	measureRegex  = regexp.MustCompile(`^measure\s+q\[(\d+)\]\s*->\s*c\[(\d+)\];?$`)
	measureAllRgx = regexp.MustCompile(`^measure\s+q\s*->\s*c;?$`)
)

// qasmNames maps accepted QASM spellings to canonical gate names. The
// phase gate is written u1 in qelib1 but p in newer dialects; both parse.
var qasmNames = map[string]string{
	quantum.GateH:     quantum.GateH,
	quantum.GateX:     quantum.GateX,
	quantum.GateY:     quantum.GateY,
	quantum.GateZ:     quantum.GateZ,
	quantum.GateS:     quantum.GateS,
	quantum.GateSdg:   quantum.GateSdg,
	quantum.GateT:     quantum.GateT,
	quantum.GateTdg:   quantum.GateTdg,
	quantum.GateRX:    quantum.GateRX,
	quantum.GateRY:    quantum.GateRY,
	quantum.GateRZ:    quantum.GateRZ,
	"u1":              quantum.GatePhase,
	quantum.GatePhase: quantum.GatePhase,
	quantum.GateCX:    quantum.GateCX,
	quantum.GateCZ:    quantum.GateCZ,
	quantum.GateSwap:  quantum.GateSwap,
}

// ToQASM renders the circuit as OpenQASM 2.0. Custom unitaries have no
// qelib1 spelling and are rejected.
func (c *Circuit) ToQASM() (string, error) {
	var b strings.Builder
	b.WriteString("OPENQASM 2.0;\n")
	b.WriteString("include \"qelib1.inc\";\n")
	fmt.Fprintf(&b, "qreg q[%d];\n", c.NumQubits)
	fmt.Fprintf(&b, "creg c[%d];\n", c.NumQubits)

	for i, op := range c.Ops {
		if op.Name == quantum.GateU {
			return "", fmt.Errorf("op %d: custom unitaries cannot be rendered as QASM", i)
		}

		name := op.Name
		if name == quantum.GatePhase {
			name = "u1"
		}

		b.WriteString(name)
		if len(op.Params) > 0 {
			b.WriteByte('(')
			for j, p := range op.Params {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
			}
			b.WriteByte(')')
		}
		b.WriteByte(' ')
		for j, q := range op.Qubits {
			if j > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "q[%d]", q)
		}
		b.WriteString(";\n")
	}

	return b.String(), nil
}

// ParseQASM reads an OpenQASM 2.0 program into a circuit. Classical
// registers, measurements, barriers, and comments are accepted and
// discarded; the workbench always reads out the full state.
func ParseQASM(text string) (*Circuit, error) {
	var c *Circuit

	for lineNum, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "OPENQASM") || strings.HasPrefix(line, "include") ||
			strings.HasPrefix(line, "barrier") {
			continue
		}

		if m := qregRegex.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("line %d: bad register size %q", lineNum+1, m[1])
			}
			c = New(n)
			continue
		}
		if cregRegex.MatchString(line) || measureRegex.MatchString(line) || measureAllRgx.MatchString(line) {
			continue
		}

		if c == nil {
			return nil, fmt.Errorf("line %d: gate before qreg declaration", lineNum+1)
		}

		m := gateRegex.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("line %d: cannot parse %q", lineNum+1, line)
		}

		name, ok := qasmNames[strings.ToLower(m[1])]
		if !ok {
			return nil, fmt.Errorf("line %d: unsupported gate %q", lineNum+1, m[1])
		}

		var params []float64
		if m[2] != "" {
			for _, part := range strings.Split(m[2], ",") {
				v, err := parseAngle(part)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad parameter %q", lineNum+1, strings.TrimSpace(part))
				}
				params = append(params, v)
			}
		}

		q0, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad wire index %q", lineNum+1, m[3])
		}
		qubits := []int{q0}
		if m[4] != "" {
			q1, err := strconv.Atoi(m[4])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad wire index %q", lineNum+1, m[4])
			}
			qubits = append(qubits, q1)
		}

		c.Add(GateOp{Name: name, Qubits: qubits, Params: params})
	}

	if c == nil {
		return nil, fmt.Errorf("no qreg declaration found")
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("parsed circuit invalid: %w", err)
	}

	return c, nil
}

// parseAngle reads one QASM angle expression. qelib1 programs write angles
// in terms of pi (pi/4, -pi/2, 3*pi/4), so those forms parse alongside
// plain decimals.
func parseAngle(s string) (float64, error) {
	orig := strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(orig, 64); err == nil {
		return v, nil
	}

	expr := orig
	neg := false
	if strings.HasPrefix(expr, "-") {
		neg = true
		expr = strings.TrimSpace(expr[1:])
	}

	num, den := expr, ""
	if idx := strings.Index(expr, "/"); idx >= 0 {
		num = strings.TrimSpace(expr[:idx])
		den = strings.TrimSpace(expr[idx+1:])
	}

	factor := 1.0
	if idx := strings.Index(num, "*"); idx >= 0 {
		f, err := strconv.ParseFloat(strings.TrimSpace(num[:idx]), 64)
		if err != nil {
			return 0, fmt.Errorf("bad angle %q", orig)
		}
		factor = f
		num = strings.TrimSpace(num[idx+1:])
	}
	if num != "pi" {
		return 0, fmt.Errorf("bad angle %q", orig)
	}

	v := factor * math.Pi
	if den != "" {
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("bad angle %q", orig)
		}
		v /= d
	}
	if neg {
		v = -v
	}

	return v, nil
}
