package guard

import (
	"fmt"

	"github.com/heapguard/heapguard/pkg/types"
)

// CheckID identifies one access-check entry point: element width, operation,
// and whether the repeat-count ("repz") variant is meant. Direction is an
// argument of the string checks rather than part of the identity, since the
// compatibility naming convention cannot encode it.
type CheckID struct {
	Width    uint8
	Op       types.AccessOp
	Prefixed bool
}

// Name renders the compatibility name of the entry point:
// "{width}_byte_{kind}_access", with a "repz_" prefix for the repeat-count
// variants.
func (id CheckID) Name() string {
	name := fmt.Sprintf("%d_byte_%s_access", id.Width, id.Op)
	if id.Prefixed {
		name = "repz_" + name
	}
	return name
}

// ScalarFunc validates one scalar access.
type ScalarFunc func(rt *Runtime, addr types.Address) bool

// StringFunc validates one string-style bulk access.
type StringFunc func(rt *Runtime, dst, src types.Address, count uint32, dir Direction) bool

// Check is one dispatchable entry point. Exactly one of Scalar and String is
// set, matching the operation kind.
type Check struct {
	ID     CheckID
	Scalar ScalarFunc
	String StringFunc
}

// IsString reports whether the entry point is a string-style bulk check.
func (c *Check) IsString() bool { return c.String != nil }

// The table is built once at startup; the hot path dispatches through typed
// ids and function values, never through name strings.
var (
	checkList    []*Check
	checksByID   = make(map[CheckID]*Check)
	checksByName = make(map[string]*Check)
)

func init() {
	for _, width := range []uint8{1, 2, 4} {
		for _, op := range []types.AccessOp{types.OpRead, types.OpWrite} {
			register(newScalarCheck(width, op))
		}
		for _, op := range []types.AccessOp{types.OpMovs, types.OpCmps, types.OpStos} {
			register(newStringCheck(width, op, false))
			register(newStringCheck(width, op, true))
		}
	}
}

func register(c *Check) {
	checkList = append(checkList, c)
	checksByID[c.ID] = c
	checksByName[c.ID.Name()] = c
}

func newScalarCheck(width uint8, op types.AccessOp) *Check {
	write := op == types.OpWrite
	return &Check{
		ID: CheckID{Width: width, Op: op},
		Scalar: func(rt *Runtime, addr types.Address) bool {
			return rt.CheckAccess(addr, width, write)
		},
	}
}

func newStringCheck(width uint8, op types.AccessOp, prefixed bool) *Check {
	return &Check{
		ID: CheckID{Width: width, Op: op, Prefixed: prefixed},
		String: func(rt *Runtime, dst, src types.Address, count uint32, dir Direction) bool {
			if !prefixed {
				// Unprefixed string instructions touch exactly one element;
				// the count argument carries whatever was in the register.
				count = 1
			}
			return rt.CheckStringAccess(op, dst, src, count, width, dir)
		},
	}
}

// Checks returns all entry points in registration order.
func Checks() []*Check { return checkList }

// GetCheck returns the entry point with the given typed id.
func GetCheck(id CheckID) (*Check, bool) {
	c, ok := checksByID[id]
	return c, ok
}

// LookupCheck resolves an entry point by its compatibility name, e.g.
// "4_byte_read_access" or "repz_2_byte_cmps_access".
func LookupCheck(name string) (*Check, bool) {
	c, ok := checksByName[name]
	return c, ok
}
