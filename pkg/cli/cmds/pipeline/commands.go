// Package pipeline adds shell commands running the pipeline stages one at
// a time.
package pipeline

import (
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/cloudsense/pkg/cli/sh"
	"github.com/robotalks/cloudsense/pkg/link"
	"github.com/robotalks/cloudsense/pkg/node"
	sensorsim "github.com/robotalks/cloudsense/pkg/sensor/sim"
)

var (
	// CaptureCmd captures a frame.
	CaptureCmd = ishell.Cmd{
		Name:    "capture",
		Aliases: []string{"cap"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			buf := s.Cycle.Frame()
			start := time.Now()
			s.Captured = false
			if err := s.Cycle.Capturer.Capture(s.Context(), buf); err != nil {
				c.Err(err)
				return
			}
			s.Captured = true
			c.Printf("W:%d H:%d L:%d in %v\n", buf.Width(), buf.Height(), buf.Len()*4, time.Since(start))
		},
	}

	// InferCmd runs the accelerator over the captured frame.
	InferCmd = ishell.Cmd{
		Name:    "infer",
		Aliases: []string{"inf"},
		Help:    "",
		Func: sh.MustHaveFrame(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			elapsed, err := s.Cycle.Engine.Run(s.Context(), s.Cycle.Frame(), s.Scores)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				sh.PrintJSON(c, map[string]interface{}{"scores": s.Scores, "elapsed_us": elapsed.Microseconds()})
				return
			}
			c.Printf("Time for CNN: %d us\n", elapsed.Microseconds())
			c.Println(s.Scores)
		}),
	}

	// DecodeCmd decodes the scores of the last inference.
	DecodeCmd = ishell.Cmd{
		Name:    "decode",
		Aliases: []string{"dec"},
		Help:    "[SCORE...]",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			scores := s.Scores
			if len(c.Args) > 0 {
				scores = make([]int32, len(c.Args))
				for i, arg := range c.Args {
					v, err := strconv.ParseInt(arg, 0, 32)
					if err != nil {
						c.Err(fmt.Errorf("Invalid SCORE %q: %v", arg, err))
						return
					}
					scores[i] = int32(v)
				}
			}
			res, err := s.Cycle.Decoder.Decode(scores)
			if err != nil {
				c.Err(err)
				return
			}
			s.Result = res.Clone()
			if s.OutputJSON {
				sh.PrintJSON(c, s.Result)
				return
			}
			for _, line := range res.Lines(s.Cycle.Decoder.Labels) {
				c.Println(line)
			}
		},
	}

	// SendCmd transmits the payload of the captured frame.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "[frame|gray|result]",
		Func: sh.MustHaveFrame(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			mode := s.Cycle.Payload
			if len(c.Args) > 0 {
				m, err := node.ParsePayloadMode(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				mode = m
			}
			payload := node.AppendPayload(nil, mode, s.Cycle.Frame(), s.Result)
			before := len(s.Rig.Radio.Packets())
			ctx := s.Context()
			if a, ok := s.Cycle.Link.(link.Announcer); ok && s.Result != nil {
				if err := a.Announce(ctx, s.Result.Label); err != nil {
					c.Err(err)
					return
				}
			}
			if err := s.Cycle.Link.Transmit(ctx, payload); err != nil {
				c.Err(err)
				return
			}
			c.Printf("%d bytes sent, %d radio packets\n", len(payload), len(s.Rig.Radio.Packets())-before)
		}),
	}

	// DumpCmd prints the captured frame as gray hex bytes.
	DumpCmd = ishell.Cmd{
		Name: "dump",
		Help: "",
		Func: sh.MustHaveFrame(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			c.Print(string(link.AppendHexDump(nil, s.Cycle.Frame().AppendGray(nil))))
		}),
	}

	// PayloadCmd shows or sets the cycle payload.
	PayloadCmd = ishell.Cmd{
		Name: "payload",
		Help: "[frame|gray|result]",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			if len(c.Args) > 0 {
				m, err := node.ParsePayloadMode(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				s.Cycle.Payload = m
			}
			c.Println(s.Cycle.Payload)
		},
	}

	// OverflowCmd makes the following captures overflow.
	OverflowCmd = ishell.Cmd{
		Name: "overflow",
		Help: "[COUNT...]",
		Func: func(c *ishell.Context) {
			counts := []uint32{1}
			if len(c.Args) > 0 {
				counts = counts[:0]
				for _, arg := range c.Args {
					v, err := strconv.ParseUint(arg, 0, 32)
					if err != nil {
						c.Err(fmt.Errorf("Invalid COUNT %q: %v", arg, err))
						return
					}
					counts = append(counts, uint32(v))
				}
			}
			sh.ShellFrom(c).Rig.Sensor.InjectOverflow(counts...)
		},
	}

	// MuteCmd suppresses the accelerator completion interrupt.
	MuteCmd = ishell.Cmd{
		Name: "mute",
		Help: "on|off",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			if len(c.Args) > 0 {
				s.Rig.Accel.Mute = c.Args[0] == "on"
			}
			c.Printf("completion muted: %v\n", s.Rig.Accel.Mute)
		},
	}

	// LoadCmd streams another image.
	LoadCmd = ishell.Cmd{
		Name: "load",
		Help: "IMAGE",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("IMAGE required"))
				return
			}
			img, err := sensorsim.LoadImage(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.ShellFrom(c).Rig.Sensor.SetImage(img)
		},
	}
)

func init() {
	sh.AddCmds(
		&CaptureCmd,
		&InferCmd,
		&DecodeCmd,
		&SendCmd,
		&DumpCmd,
		&PayloadCmd,
		&OverflowCmd,
		&MuteCmd,
		&LoadCmd,
	)
}
