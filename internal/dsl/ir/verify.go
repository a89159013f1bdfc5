package ir

import "fmt"

// SSAViolation reports a mid-IR module left in a state inconsistent with
// §3's invariants by a pass. It is fatal and not user-recoverable: the
// pipeline aborts with an internal-compiler-error diagnostic on receipt.
type SSAViolation struct {
	Function string
	Message  string
}

func (e *SSAViolation) Error() string {
	return fmt.Sprintf("SSA violation in %s: %s", e.Function, e.Message)
}

// Verify checks invariants 1-3 of §3 against fn's current block graph:
// every value has exactly one definition, every use is dominated by its
// definition (respecting the phi operand/predecessor pairing exception),
// and every block ends in exactly one terminator.
func Verify(fn *Function) error {
	defs := make(map[ValueID]BlockID)
	for _, b := range fn.Blocks {
		for i, inst := range b.Instructions {
			isLast := i == len(b.Instructions)-1
			if inst.Op.IsTerminator() && !isLast {
				return &SSAViolation{fn.Name, fmt.Sprintf("terminator %v mid-block in %s", inst.Op, b.Name)}
			}
			if inst.ID == NoValue {
				continue
			}
			if _, dup := defs[inst.ID]; dup {
				return &SSAViolation{fn.Name, fmt.Sprintf("value %d defined more than once", inst.ID)}
			}
			defs[inst.ID] = b.ID
		}
		if term := b.Terminator(); term == nil {
			return &SSAViolation{fn.Name, fmt.Sprintf("block %s has no terminator", b.Name)}
		}
	}

	dom := fn.Dominance()
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if inst.Op == OpPhi {
				if len(inst.Operands) != len(inst.IncomingBlocks) {
					return &SSAViolation{fn.Name, "phi operand/predecessor count mismatch"}
				}
				for i, operand := range inst.Operands {
					defBlock, ok := defs[operand]
					if !ok {
						continue // operand defined outside fn (param) or constant-folded away
					}
					pred := inst.IncomingBlocks[i]
					if !dom.Dominates(defBlock, pred) && defBlock != pred {
						return &SSAViolation{fn.Name, fmt.Sprintf("phi operand %d not dominating predecessor %s", operand, fn.Blocks[pred].Name)}
					}
				}
				continue
			}
			for _, operand := range inst.Operands {
				defBlock, ok := defs[operand]
				if !ok {
					continue
				}
				if !dom.Dominates(defBlock, b.ID) {
					return &SSAViolation{fn.Name, fmt.Sprintf("use of value %d in %s not dominated by its definition in %s", operand, b.Name, fn.Blocks[defBlock].Name)}
				}
			}
		}
	}
	return nil
}

// VerifyModule runs Verify over every function in m.
func VerifyModule(m *Module) error {
	for _, name := range m.Order {
		if err := Verify(m.Functions[name]); err != nil {
			return err
		}
	}
	return nil
}
