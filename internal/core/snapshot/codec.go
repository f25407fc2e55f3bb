package snapshot

import (
	"encoding/binary"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

// Record sizes in bytes.
const (
	PlayerSize = 36
	EntitySize = 52
	SectorSize = 12
	LineSize   = 6

	// HeaderSize covers tick, the player array and the entity count.
	HeaderSize = 4 + domain.MaxPlayers*PlayerSize + 4
)

// EncodedSize returns the number of bytes Encode produces for s.
func EncodedSize(s *domain.Snapshot) int {
	return HeaderSize +
		min(len(s.Entities), domain.MaxEntities)*EntitySize +
		4 + len(s.Sectors)*SectorSize +
		4 + len(s.Lines)*LineSize
}

// EntitiesWithin returns how many of s's entities fit when the whole
// encoding may take at most limit bytes, capped at the entity ceiling. It
// returns -1 when not even the fixed sections fit.
func EntitiesWithin(s *domain.Snapshot, limit int) int {
	fixed := HeaderSize + 4 + len(s.Sectors)*SectorSize + 4 + len(s.Lines)*LineSize
	if fixed > limit {
		return -1
	}
	return min((limit-fixed)/EntitySize, len(s.Entities), domain.MaxEntities)
}

// Encode serializes s. Entities past domain.MaxEntities are dropped.
func Encode(s *domain.Snapshot) []byte {
	return AppendEncode(make([]byte, 0, EncodedSize(s)), s)
}

// AppendEncode appends the encoding of s to buf and returns the extended
// buffer.
func AppendEncode(buf []byte, s *domain.Snapshot) []byte {
	be := binary.BigEndian

	buf = be.AppendUint32(buf, s.Tick)
	for _, p := range s.Players {
		buf = appendPlayer(buf, p)
	}

	entities := s.Entities
	if len(entities) > domain.MaxEntities {
		entities = entities[:domain.MaxEntities]
	}
	buf = be.AppendUint32(buf, uint32(len(entities)))
	for _, e := range entities {
		buf = appendEntity(buf, e)
	}

	buf = be.AppendUint32(buf, uint32(len(s.Sectors)))
	for _, sec := range s.Sectors {
		buf = be.AppendUint32(buf, uint32(sec.FloorHeight))
		buf = be.AppendUint32(buf, uint32(sec.CeilingHeight))
		buf = be.AppendUint16(buf, uint16(sec.LightLevel))
		buf = be.AppendUint16(buf, uint16(sec.Special))
	}

	buf = be.AppendUint32(buf, uint32(len(s.Lines)))
	for _, ln := range s.Lines {
		buf = be.AppendUint32(buf, ln.Flags)
		buf = be.AppendUint16(buf, uint16(ln.Special))
	}

	return buf
}

func appendPlayer(buf []byte, p domain.PlayerState) []byte {
	be := binary.BigEndian
	var inGame byte
	if p.InGame {
		inGame = 1
	}
	buf = append(buf, inGame, p.Status, 0, 0)
	buf = be.AppendUint32(buf, p.EntityID)
	buf = be.AppendUint32(buf, uint32(p.Health))
	buf = be.AppendUint32(buf, uint32(p.Armor))
	buf = be.AppendUint32(buf, uint32(p.ReadyWeapon))
	buf = be.AppendUint32(buf, uint32(p.Kills))
	buf = be.AppendUint32(buf, uint32(p.Items))
	buf = be.AppendUint32(buf, uint32(p.Secrets))
	buf = be.AppendUint32(buf, uint32(p.ViewHeight))
	return buf
}

func appendEntity(buf []byte, e domain.EntityState) []byte {
	be := binary.BigEndian
	buf = be.AppendUint32(buf, e.ID)
	buf = be.AppendUint32(buf, uint32(e.Pos.X))
	buf = be.AppendUint32(buf, uint32(e.Pos.Y))
	buf = be.AppendUint32(buf, uint32(e.Pos.Z))
	buf = be.AppendUint32(buf, uint32(e.Vel.X))
	buf = be.AppendUint32(buf, uint32(e.Vel.Y))
	buf = be.AppendUint32(buf, uint32(e.Vel.Z))
	buf = be.AppendUint32(buf, e.Angle)
	buf = be.AppendUint32(buf, uint32(e.Type))
	buf = be.AppendUint32(buf, uint32(e.Health))
	buf = be.AppendUint32(buf, uint32(e.AnimState))
	buf = be.AppendUint32(buf, e.Flags)
	buf = be.AppendUint32(buf, uint32(e.Tics))
	return buf
}

// Decode parses buf into a Snapshot.
//
// It fails with domain.ErrMalformedSnapshot when buf is shorter than the
// header, when a declared count would read past the end of buf, when the
// entity count exceeds domain.MaxEntities, or when bytes are left over.
// No partially decoded snapshot is ever returned.
func Decode(buf []byte) (*domain.Snapshot, error) {
	if len(buf) < HeaderSize {
		return nil, malformed("buffer is %d bytes, header needs %d", len(buf), HeaderSize)
	}

	r := reader{buf: buf}
	s := &domain.Snapshot{Tick: r.u32()}
	for i := range s.Players {
		s.Players[i] = r.player()
	}

	count := r.u32()
	if count > domain.MaxEntities {
		return nil, malformed("entity count %d exceeds ceiling %d", count, domain.MaxEntities)
	}
	if !r.has(uint64(count)*EntitySize + 4) {
		return nil, malformed("entity section of %d records overruns buffer", count)
	}
	if count > 0 {
		s.Entities = make([]domain.EntityState, count)
		for i := range s.Entities {
			s.Entities[i] = r.entity()
		}
	}

	count = r.u32()
	if !r.has(uint64(count)*SectorSize + 4) {
		return nil, malformed("sector section of %d records overruns buffer", count)
	}
	if count > 0 {
		s.Sectors = make([]domain.SectorState, count)
		for i := range s.Sectors {
			s.Sectors[i] = domain.SectorState{
				FloorHeight:   r.i32(),
				CeilingHeight: r.i32(),
				LightLevel:    r.i16(),
				Special:       r.i16(),
			}
		}
	}

	count = r.u32()
	if !r.has(uint64(count) * LineSize) {
		return nil, malformed("line section of %d records overruns buffer", count)
	}
	if count > 0 {
		s.Lines = make([]domain.LineState, count)
		for i := range s.Lines {
			s.Lines[i] = domain.LineState{
				Flags:   r.u32(),
				Special: r.i16(),
			}
		}
	}

	if rest := r.remaining(); rest != 0 {
		return nil, malformed("%d trailing bytes after line section", rest)
	}

	return s, nil
}

func malformed(format string, args ...any) error {
	return domain.ErrMalformedSnapshot.WithDetails(format, args...)
}

// reader walks a buffer whose bounds have already been checked by the
// caller through has.
type reader struct {
	buf []byte
	off int
}

func (r *reader) has(n uint64) bool {
	return uint64(len(r.buf)-r.off) >= n
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) u32() uint32 {
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) i32() int32 {
	return int32(r.u32())
}

func (r *reader) i16() int16 {
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return int16(v)
}

func (r *reader) player() domain.PlayerState {
	p := domain.PlayerState{
		InGame: r.buf[r.off] != 0,
		Status: r.buf[r.off+1],
	}
	r.off += 4
	p.EntityID = r.u32()
	p.Health = r.i32()
	p.Armor = r.i32()
	p.ReadyWeapon = r.i32()
	p.Kills = r.i32()
	p.Items = r.i32()
	p.Secrets = r.i32()
	p.ViewHeight = r.i32()
	return p
}

func (r *reader) entity() domain.EntityState {
	return domain.EntityState{
		ID:        r.u32(),
		Pos:       domain.Vec3{X: r.i32(), Y: r.i32(), Z: r.i32()},
		Vel:       domain.Vec3{X: r.i32(), Y: r.i32(), Z: r.i32()},
		Angle:     r.u32(),
		Type:      r.i32(),
		Health:    r.i32(),
		AnimState: r.i32(),
		Flags:     r.u32(),
		Tics:      r.i32(),
	}
}
