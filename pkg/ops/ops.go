// Package ops maps text commands onto dispatcher operations.
// The same table drives the interactive shell and the MQTT remote.
package ops

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/cartbus/pkg/cart"
)

// ErrUnknownCommand indicates a command name not in the table.
var ErrUnknownCommand = errors.New("unknown command")

// Op is a text command.
type Op struct {
	Name    string
	Aliases []string
	// Help describes the arguments.
	Help  string
	NArgs int
	Run   func(d *cart.Dispatcher, args []int) error
}

// Ops is the command table.
var Ops = []*Op{
	{
		Name:  "cmd",
		Help:  "TARGET COMMAND ADDRESS DATA",
		NArgs: 4,
		Run: func(d *cart.Dispatcher, args []int) error {
			bs, err := bytesOf(args)
			if err != nil {
				return err
			}
			d.GeneralCommand(bs[0], cart.Command(bs[1]), bs[2], bs[3])
			return nil
		},
	},
	{
		Name:    "fan",
		Aliases: []string{"f"},
		Help:    "DUTY(0-255)",
		NArgs:   1,
		Run: func(d *cart.Dispatcher, args []int) error {
			d.SetFanDuty(args[0])
			return nil
		},
	},
	{
		Name: "fan.off",
		Run: func(d *cart.Dispatcher, args []int) error {
			d.FanOff()
			return nil
		},
	},
	holderLED("uv", "0|1", (*cart.Dispatcher).ToggleUV),
	holderLED("led.white", "DUTY", (*cart.Dispatcher).SetWhiteLED),
	holderLED("led.red", "DUTY", (*cart.Dispatcher).SetRedLED),
	{
		Name:    "eeprom.write",
		Aliases: []string{"ew"},
		Help:    "TARGET ADDRESS DATA",
		NArgs:   3,
		Run: func(d *cart.Dispatcher, args []int) error {
			bs, err := bytesOf(args)
			if err != nil {
				return err
			}
			d.EEPROMWrite(bs[0], bs[1], bs[2])
			return nil
		},
	},
	{
		Name:    "eeprom.read",
		Aliases: []string{"er"},
		Help:    "TARGET ADDRESS",
		NArgs:   2,
		Run: func(d *cart.Dispatcher, args []int) error {
			bs, err := bytesOf(args)
			if err != nil {
				return err
			}
			d.EEPROMRead(bs[0], bs[1])
			return nil
		},
	},
	{
		Name:    "id",
		Aliases: []string{"serial"},
		Help:    "TARGET",
		NArgs:   1,
		Run: func(d *cart.Dispatcher, args []int) error {
			bs, err := bytesOf(args)
			if err != nil {
				return err
			}
			d.GetIdentification(bs[0])
			return nil
		},
	},
	query("programmer", (*cart.Dispatcher).GetProgrammerStation),
	query("type", (*cart.Dispatcher).GetPeripheralType),
	query("size", (*cart.Dispatcher).GetSize),
	query("material", (*cart.Dispatcher).GetMaterial),
	query("error", (*cart.Dispatcher).GetErrorCode),
	query("firmware", (*cart.Dispatcher).GetFirmwareVersion),
	query("temperature", (*cart.Dispatcher).GetTemperature),
	query("error.clear", (*cart.Dispatcher).ClearError),
	restricted("vsense", (*cart.Dispatcher).GetVoltageSense),
	restricted("switch", (*cart.Dispatcher).GetGPIOSwitch),
}

func holderLED(name, help string, fn func(*cart.Dispatcher, byte)) *Op {
	return &Op{
		Name:  name,
		Help:  help,
		NArgs: 1,
		Run: func(d *cart.Dispatcher, args []int) error {
			bs, err := bytesOf(args)
			if err != nil {
				return err
			}
			fn(d, bs[0])
			return nil
		},
	}
}

func query(name string, fn func(*cart.Dispatcher, cart.Address)) *Op {
	return restricted(name, func(d *cart.Dispatcher, addr cart.Address) error {
		fn(d, addr)
		return nil
	})
}

func restricted(name string, fn func(*cart.Dispatcher, cart.Address) error) *Op {
	return &Op{
		Name:  name,
		Help:  "TARGET",
		NArgs: 1,
		Run: func(d *cart.Dispatcher, args []int) error {
			bs, err := bytesOf(args)
			if err != nil {
				return err
			}
			return fn(d, bs[0])
		},
	}
}

// Find looks up an op by name or alias.
func Find(name string) *Op {
	for _, op := range Ops {
		if op.Name == name {
			return op
		}
		for _, alias := range op.Aliases {
			if alias == name {
				return op
			}
		}
	}
	return nil
}

// ParseArg parses a number in decimal, 0x hex or a well-known
// address name (holder, cart0, cart1).
func ParseArg(s string) (int, error) {
	switch strings.ToLower(s) {
	case "holder", "h":
		return int(cart.HolderAddress), nil
	case "cart0", "c0", "cartridge0":
		return int(cart.Cartridge0Address), nil
	case "cart1", "c1", "cartridge1":
		return int(cart.Cartridge1Address), nil
	}
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return int(n), nil
}

// Exec runs an op with text arguments.
func (op *Op) Exec(d *cart.Dispatcher, args []string) error {
	if len(args) < op.NArgs {
		if op.Help != "" {
			return fmt.Errorf("%s: %s required", op.Name, op.Help)
		}
		return fmt.Errorf("%s: missing arguments", op.Name)
	}
	vals := make([]int, op.NArgs)
	for n := range vals {
		v, err := ParseArg(args[n])
		if err != nil {
			return fmt.Errorf("%s: %v", op.Name, err)
		}
		vals[n] = v
	}
	return op.Run(d, vals)
}

// ExecLine runs a whitespace separated command line, e.g. "fan 128".
func ExecLine(d *cart.Dispatcher, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	op := Find(fields[0])
	if op == nil {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
	return op.Exec(d, fields[1:])
}

func bytesOf(args []int) ([]byte, error) {
	bs := make([]byte, len(args))
	for n, v := range args {
		if v < 0 || v > 0xff {
			return nil, fmt.Errorf("value %d out of byte range", v)
		}
		bs[n] = byte(v)
	}
	return bs, nil
}
