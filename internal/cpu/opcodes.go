package cpu

// This file decodes the base and CB-prefixed opcode spaces using the
// classic x = op>>6, y = (op>>3)&7, z = op&7, p = y>>1, q = y&1
// bitfield split. r[z] indexes {B,C,D,E,H,L,(HL),A}; rp[p] indexes
// {BC,DE,HL,SP}; rp2[p] indexes {BC,DE,HL,AF}; cc[y] (where used)
// indexes {NZ,Z,NC,C}.

func (c *CPU) readR(b Bus, idx int) byte {
	switch idx {
	case 0:
		return c.Regs.B
	case 1:
		return c.Regs.C
	case 2:
		return c.Regs.D
	case 3:
		return c.Regs.E
	case 4:
		return c.Regs.H
	case 5:
		return c.Regs.L
	case 6:
		return b.Read(c.Regs.HL())
	default:
		return c.Regs.A
	}
}

func (c *CPU) writeR(b Bus, idx int, v byte) {
	switch idx {
	case 0:
		c.Regs.B = v
	case 1:
		c.Regs.C = v
	case 2:
		c.Regs.D = v
	case 3:
		c.Regs.E = v
	case 4:
		c.Regs.H = v
	case 5:
		c.Regs.L = v
	case 6:
		b.Write(c.Regs.HL(), v)
	default:
		c.Regs.A = v
	}
}

func (c *CPU) readRP(p int) uint16 {
	switch p {
	case 0:
		return c.Regs.BC()
	case 1:
		return c.Regs.DE()
	case 2:
		return c.Regs.HL()
	default:
		return c.Regs.SP
	}
}

func (c *CPU) writeRP(p int, v uint16) {
	switch p {
	case 0:
		c.Regs.SetBC(v)
	case 1:
		c.Regs.SetDE(v)
	case 2:
		c.Regs.SetHL(v)
	default:
		c.Regs.SP = v
	}
}

func (c *CPU) readRP2(p int) uint16 {
	switch p {
	case 0:
		return c.Regs.BC()
	case 1:
		return c.Regs.DE()
	case 2:
		return c.Regs.HL()
	default:
		return c.Regs.AF()
	}
}

func (c *CPU) writeRP2(p int, v uint16) {
	switch p {
	case 0:
		c.Regs.SetBC(v)
	case 1:
		c.Regs.SetDE(v)
	case 2:
		c.Regs.SetHL(v)
	default:
		c.Regs.SetAF(v)
	}
}

func (c *CPU) condTrue(y int) bool {
	switch y {
	case 0:
		return !c.Regs.flag(FlagZ)
	case 1:
		return c.Regs.flag(FlagZ)
	case 2:
		return !c.Regs.flag(FlagC)
	default:
		return c.Regs.flag(FlagC)
	}
}

// fetchExecute decodes and runs one instruction, returning its
// machine-cycle cost.
func (c *CPU) fetchExecute(b Bus) int {
	opPC := c.Regs.PC
	op := c.fetch8(b)
	if op == 0xCB {
		cb := c.fetch8(b)
		return c.execCB(b, cb)
	}
	return c.execBase(b, opPC, op)
}

func (c *CPU) execBase(b Bus, opPC uint16, op byte) int {
	x := op >> 6
	y := (op >> 3) & 7
	z := op & 7
	p := int(y >> 1)
	q := int(y & 1)

	switch x {
	case 0:
		return c.execX0(b, opPC, op, int(y), int(z), p, q)
	case 1:
		if z == 6 && y == 6 {
			c.halted = true
			return 1
		}
		c.writeR(b, int(y), c.readR(b, int(z)))
		if y == 6 || z == 6 {
			return 2
		}
		return 1
	case 2:
		v := c.readR(b, int(z))
		c.alu(int(y), v)
		if z == 6 {
			return 2
		}
		return 1
	default: // x == 3
		return c.execX3(b, opPC, op, int(y), int(z), p, q)
	}
}

func (c *CPU) execX0(b Bus, opPC uint16, op byte, y, z, p, q int) int {
	switch z {
	case 0:
		switch {
		case y == 0: // NOP
			return 1
		case y == 1: // LD (nn),SP
			addr := c.fetch16(b)
			b.Write(addr, byte(c.Regs.SP))
			b.Write(addr+1, byte(c.Regs.SP>>8))
			return 5
		case y == 2: // STOP
			c.fetch8(b) // padding byte
			c.halted = true
			return 1
		case y == 3: // JR e
			e := int8(c.fetch8(b))
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(e))
			return 3
		default: // y=4..7 JR cc,e
			e := int8(c.fetch8(b))
			if c.condTrue(y - 4) {
				c.Regs.PC = uint16(int32(c.Regs.PC) + int32(e))
				return 3
			}
			return 2
		}
	case 1:
		if q == 0 {
			c.writeRP(p, c.fetch16(b))
			return 3
		}
		c.addHL(c.readRP(p))
		return 2
	case 2:
		var addr uint16
		switch p {
		case 0:
			addr = c.Regs.BC()
		case 1:
			addr = c.Regs.DE()
		case 2:
			addr = c.Regs.incHL()
		default:
			addr = c.Regs.decHL()
		}
		if q == 0 {
			b.Write(addr, c.Regs.A)
		} else {
			c.Regs.A = b.Read(addr)
		}
		return 2
	case 3:
		if q == 0 {
			c.writeRP(p, c.readRP(p)+1)
		} else {
			c.writeRP(p, c.readRP(p)-1)
		}
		return 2
	case 4:
		c.writeR(b, y, c.inc8(c.readR(b, y)))
		if y == 6 {
			return 3
		}
		return 1
	case 5:
		c.writeR(b, y, c.dec8(c.readR(b, y)))
		if y == 6 {
			return 3
		}
		return 1
	case 6:
		c.writeR(b, y, c.fetch8(b))
		if y == 6 {
			return 3
		}
		return 2
	default: // z==7
		switch y {
		case 0:
			c.Regs.A = c.rlc(c.Regs.A)
			c.Regs.setFlag(FlagZ, false)
		case 1:
			c.Regs.A = c.rrc(c.Regs.A)
			c.Regs.setFlag(FlagZ, false)
		case 2:
			c.Regs.A = c.rl(c.Regs.A)
			c.Regs.setFlag(FlagZ, false)
		case 3:
			c.Regs.A = c.rr(c.Regs.A)
			c.Regs.setFlag(FlagZ, false)
		case 4:
			c.daa()
		case 5:
			c.cpl()
		case 6:
			c.scf()
		case 7:
			c.ccf()
		}
		if y <= 3 {
			c.Regs.setFlag(FlagN, false)
			c.Regs.setFlag(FlagH, false)
		}
		return 1
	}
}

func (c *CPU) execX3(b Bus, opPC uint16, op byte, y, z, p, q int) int {
	switch z {
	case 0:
		switch {
		case y <= 3: // RET cc
			if c.condTrue(y) {
				c.Regs.PC = c.pop16(b)
				return 5
			}
			return 2
		case y == 4: // LDH (n),A
			addr := 0xFF00 + uint16(c.fetch8(b))
			b.Write(addr, c.Regs.A)
			return 3
		case y == 5: // ADD SP,e
			c.Regs.SP = c.spPlusE(b)
			return 4
		case y == 6: // LDH A,(n)
			addr := 0xFF00 + uint16(c.fetch8(b))
			c.Regs.A = b.Read(addr)
			return 3
		default: // y==7 LD HL,SP+e
			c.Regs.SetHL(c.spPlusE(b))
			return 3
		}
	case 1:
		if q == 0 {
			c.writeRP2(p, c.pop16(b))
			return 3
		}
		switch p {
		case 0: // RET
			c.Regs.PC = c.pop16(b)
			return 4
		case 1: // RETI
			c.Regs.PC = c.pop16(b)
			c.ime = true
			return 4
		case 2: // JP HL
			c.Regs.PC = c.Regs.HL()
			return 1
		default: // LD SP,HL
			c.Regs.SP = c.Regs.HL()
			return 2
		}
	case 2:
		switch {
		case y <= 3: // JP cc,nn
			addr := c.fetch16(b)
			if c.condTrue(y) {
				c.Regs.PC = addr
				return 4
			}
			return 3
		case y == 4: // LD (C),A
			b.Write(0xFF00+uint16(c.Regs.C), c.Regs.A)
			return 2
		case y == 5: // LD (nn),A
			b.Write(c.fetch16(b), c.Regs.A)
			return 4
		case y == 6: // LD A,(C)
			c.Regs.A = b.Read(0xFF00 + uint16(c.Regs.C))
			return 2
		default: // LD A,(nn)
			c.Regs.A = b.Read(c.fetch16(b))
			return 4
		}
	case 3:
		switch y {
		case 0: // JP nn
			c.Regs.PC = c.fetch16(b)
			return 4
		case 6: // DI
			c.ime = false
			c.imeDelay = false
			return 1
		case 7: // EI
			c.imeDelay = true
			return 1
		default: // y==1 handled before dispatch reaches here (CB), 2/3/4/5 illegal
			c.logUnknown(opPC, op)
			return 1
		}
	case 4:
		if y <= 3 { // CALL cc,nn
			addr := c.fetch16(b)
			if c.condTrue(y) {
				c.push16(b, c.Regs.PC)
				c.Regs.PC = addr
				return 6
			}
			return 3
		}
		c.logUnknown(opPC, op)
		return 1
	case 5:
		if q == 0 {
			c.push16(b, c.readRP2(p))
			return 4
		}
		if p == 0 { // CALL nn
			addr := c.fetch16(b)
			c.push16(b, c.Regs.PC)
			c.Regs.PC = addr
			return 6
		}
		c.logUnknown(opPC, op)
		return 1
	case 6:
		v := c.fetch8(b)
		c.alu(y, v)
		return 2
	default: // z==7 RST
		c.push16(b, c.Regs.PC)
		c.Regs.PC = uint16(y) * 8
		return 4
	}
}

// execCB dispatches the 256 CB-prefixed opcodes: x2=0 rotate/shift
// group, x2=1 BIT, x2=2 RES, x2=3 SET.
func (c *CPU) execCB(b Bus, op byte) int {
	x := op >> 6
	y := int((op >> 3) & 7)
	z := int(op & 7)

	v := c.readR(b, z)
	switch x {
	case 0:
		var res byte
		switch y {
		case 0:
			res = c.rlc(v)
		case 1:
			res = c.rrc(v)
		case 2:
			res = c.rl(v)
		case 3:
			res = c.rr(v)
		case 4:
			res = c.sla(v)
		case 5:
			res = c.sra(v)
		case 6:
			res = c.swap(v)
		default:
			res = c.srl(v)
		}
		c.Regs.setFlag(FlagZ, res == 0)
		c.Regs.setFlag(FlagN, false)
		c.Regs.setFlag(FlagH, false)
		c.writeR(b, z, res)
	case 1: // BIT y,r
		c.bit(y, v)
		if z == 6 {
			return 3
		}
		return 2
	case 2: // RES y,r
		c.writeR(b, z, v&^(1<<uint(y)))
	default: // SET y,r
		c.writeR(b, z, v|(1<<uint(y)))
	}
	if z == 6 {
		return 4
	}
	return 2
}
