// Package sh provides an interactive shell driving the node pipeline on
// simulated hardware, one stage or one cycle at a time.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/abiosoft/ishell"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/robotalks/cloudsense/pkg/accel"
	"github.com/robotalks/cloudsense/pkg/classify"
	"github.com/robotalks/cloudsense/pkg/link"
	"github.com/robotalks/cloudsense/pkg/node"
	"github.com/robotalks/cloudsense/pkg/rig"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell *ishell.Shell
	Rig   *rig.Rig
	Cycle *node.Cycle

	// Scores and Result hold the output of the last infer and decode.
	Scores   accel.ResultVector
	Result   *classify.Result
	Captured bool

	closer io.Closer
}

const (
	shellKey = "$shell"
	prompt   = "node > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&StatusCmd,
		&CycleCmd,
		&ResumeCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell over simulated hardware.
func New(nodeConf *node.Config, linkConf *link.Config, rigConf *rig.Config) (*Shell, error) {
	labels := nodeConf.Labels()
	r, err := rigConf.New(nodeConf.Width, nodeConf.Height, len(labels))
	if err != nil {
		return nil, err
	}
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Shell:       ishell.New(),
		Rig:         r,
		Scores:      make(accel.ResultVector, len(labels)),
	}
	var l link.Link
	switch linkConf.Kind {
	case link.KindRadio:
		if l, err = linkConf.NewRadio(r.Radio); err != nil {
			return nil, err
		}
	case link.KindSerial:
		if linkConf.SerialDevice == "-" {
			l, err = linkConf.NewSerial(os.Stdout)
		} else {
			l, s.closer, err = linkConf.OpenSerial()
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("link %q not available in the shell", linkConf.Kind)
	}
	if s.Cycle, err = nodeConf.NewCycle(r.Sensor, r.Accel, r.Done, l); err != nil {
		return nil, err
	}
	s.Cycle.Status = func(line string) { s.Shell.Println(line) }

	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s, nil
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Context is the context commands run with.
func (s *Shell) Context() context.Context {
	return context.Background()
}

// MustHaveFrame wraps command func requires a captured frame.
func MustHaveFrame(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if !ShellFrom(c).Captured {
			c.Err(fmt.Errorf("no frame, run capture first"))
			return
		}
		fn(c)
	}
}

// PrintJSON prints v as JSON, protobuf messages with protojson.
func PrintJSON(c *ishell.Context, v interface{}) error {
	var out []byte
	var err error
	if msg, ok := v.(proto.Message); ok {
		out, err = protojson.Marshal(msg)
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		c.Err(err)
		return err
	}
	c.Println(string(out))
	return nil
}

// PrintReport prints a cycle report.
func PrintReport(c *ishell.Context, r *node.Report) {
	if ShellFrom(c).OutputJSON {
		st, err := r.Struct()
		if err != nil {
			c.Err(err)
			return
		}
		PrintJSON(c, st)
		return
	}
	switch {
	case r.OK():
		c.Printf("#%d %s in %v: %s, %d bytes sent\n", r.Seq, r.ID, r.Duration, r.Result, r.PayloadBytes)
	case r.Halted:
		c.Printf("#%d %s HALTED: %v\n", r.Seq, r.ID, r.Err)
	default:
		c.Printf("#%d %s failed in %s: %v\n", r.Seq, r.ID, r.State, r.Err)
	}
}

// Cycles steps up to count cycles, passing each report to fn. It stops
// once the node is halted and returns the number of cycles stepped.
func (s *Shell) Cycles(ctx context.Context, count int, fn func(*node.Report)) int {
	for i := 0; i < count; i++ {
		r := s.Cycle.Step(ctx)
		fn(r)
		if r.Halted || s.Cycle.Halted() != nil {
			return i + 1
		}
	}
	return count
}

// Close releases the link device.
func (s *Shell) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Close()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// StatusCmd prints the node state.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			status := struct {
				State    string `json:"state"`
				Halted   string `json:"halted,omitempty"`
				Payload  string `json:"payload"`
				Captured bool   `json:"captured"`
				Packets  int    `json:"radio-packets"`
			}{
				State:    s.Cycle.State().String(),
				Payload:  s.Cycle.Payload.String(),
				Captured: s.Captured,
				Packets:  len(s.Rig.Radio.Packets()),
			}
			if err := s.Cycle.Halted(); err != nil {
				status.Halted = err.Error()
			}
			if s.OutputJSON {
				PrintJSON(c, &status)
				return
			}
			c.Printf("state %s, payload %s, %d radio packets\n", status.State, status.Payload, status.Packets)
			if status.Halted != "" {
				c.Println(status.Halted)
			}
		},
	}

	// CycleCmd runs complete cycles.
	CycleCmd = ishell.Cmd{
		Name:    "cycle",
		Aliases: []string{"c"},
		Help:    "[COUNT]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			count := 1
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil || n <= 0 {
					c.Err(fmt.Errorf("Invalid COUNT: %q", c.Args[0]))
					return
				}
				count = n
			}
			s.Cycles(s.Context(), count, func(r *node.Report) { PrintReport(c, r) })
			s.Captured = s.Cycle.Frame().Full()
		},
	}

	// ResumeCmd clears a halt.
	ResumeCmd = ishell.Cmd{
		Name: "resume",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Cycle.Resume()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	s, err := New(node.Default(), link.Default(), rig.Default())
	if err != nil {
		log.Fatalln(err)
	}
	s.Run(flag.Args()...)
}
