// Package shell provides the ishell backed command line of diffcan.
package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/abiosoft/ishell"
)

// Shell wraps an ishell shell around a Session.
type Shell struct {
	Interactive bool
	// Ctx bounds long running commands. Nil means context.Background.
	Ctx context.Context

	Shell   *ishell.Shell
	Session *Session
}

const (
	shellKey = "$shell"
	prompt   = "can > "
)

var commands = []*ishell.Cmd{
	&EncodeCmd,
	&DecodeCmd,
	&FeedCmd,
	&ResetCmd,
	&CRCCmd,
	&LoopbackCmd,
	&StrictCmd,
}

// New creates a shell over session.
func New(session *Session) *Shell {
	s := &Shell{
		Interactive: true,
		Shell:       ishell.New(),
		Session:     session,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Run runs args as a single command, or the interactive shell when args
// is empty.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if !s.Interactive {
		return errors.New("command expected")
	}
	s.Shell.Run()
	return nil
}

// commandContext is cancelled on interrupt or when Ctx ends. Readline is
// not reading while a command runs, so Ctrl-C arrives as a signal.
func (s *Shell) commandContext() (context.Context, context.CancelFunc) {
	ctx := s.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

// updatePrompt shows the decoder position while a frame is being fed.
func updatePrompt(c *ishell.Context) {
	s := ShellFrom(c)
	if s.Session.Idle() {
		s.Shell.SetPrompt(prompt)
		return
	}
	cursor := s.Session.Cursor()
	s.Shell.SetPrompt(fmt.Sprintf("can [%s:%d] > ", cursor.Field, cursor.Pos))
}

var (
	// EncodeCmd prints the transmit buffer of a frame.
	EncodeCmd = ishell.Cmd{
		Name:    "encode",
		Aliases: []string{"e"},
		Help:    "ID [rtr] [HEX]",
		Func: func(c *ishell.Context) {
			f, buf, err := ShellFrom(c).Session.Encode(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(f)
			c.Println(f.BitString())
			c.Printf("%X\n", buf)
		},
	}

	// DecodeCmd decodes a transmit buffer.
	DecodeCmd = ishell.Cmd{
		Name:    "decode",
		Aliases: []string{"d"},
		Help:    "HEX",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errors.New("usage: decode HEX"))
				return
			}
			frames, err := ShellFrom(c).Session.Decode(c.Args[0])
			for _, f := range frames {
				c.Println(f)
			}
			if err != nil {
				c.Err(err)
			}
		},
	}

	// FeedCmd hands one sampler event to the decoder.
	FeedCmd = ishell.Cmd{
		Name:    "feed",
		Aliases: []string{"f"},
		Help:    "sof | ifs | word HEX [LEN]",
		Func: func(c *ishell.Context) {
			f, err := ShellFrom(c).Session.Feed(c.Args)
			updatePrompt(c)
			if err != nil {
				c.Err(err)
				return
			}
			if f != nil {
				c.Println(f)
			}
		},
	}

	// ResetCmd drops the frame being fed.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Session.Reset()
			updatePrompt(c)
		},
	}

	// CRCCmd computes the CRC-15 of a bit string.
	CRCCmd = ishell.Cmd{
		Name: "crc",
		Help: "BITS",
		Func: func(c *ishell.Context) {
			crc, err := CRC(strings.Join(c.Args, ""))
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%04X\n", crc)
		},
	}

	// LoopbackCmd sends a frame over a simulated bus.
	LoopbackCmd = ishell.Cmd{
		Name:    "loopback",
		Aliases: []string{"l"},
		Help:    "ID [rtr] [HEX]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, stop := s.commandContext()
			defer stop()
			f, err := s.Session.Loopback(ctx, c.Args)
			if errors.Is(err, context.Canceled) {
				c.Err(errors.New("loopback interrupted"))
				return
			}
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(f)
		},
	}

	// StrictCmd shows or sets strict mode.
	StrictCmd = ishell.Cmd{
		Name: "strict",
		Help: "[on|off]",
		Func: func(c *ishell.Context) {
			session := ShellFrom(c).Session
			if len(c.Args) > 0 {
				switch strings.ToLower(c.Args[0]) {
				case "on":
					session.SetStrict(true)
				case "off":
					session.SetStrict(false)
				default:
					c.Err(fmt.Errorf("strict %q: want on or off", c.Args[0]))
					return
				}
			}
			c.Printf("strict %t\n", session.Strict())
		},
	}
)
