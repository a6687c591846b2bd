package depot

import "github.com/TheBitDrifter/mask"

// EntityFlag is one bit of an entity's flag record.
type EntityFlag uint32

const (
	// FlagPrefab marks a template entity for Instantiate.
	FlagPrefab EntityFlag = iota
	// FlagImmutable rejects component changes and removal.
	FlagImmutable
	// FlagPermanent rejects removal. Relations set it on their sources.
	FlagPermanent
	FlagOnRemove
	FlagOnMutate
)

func (f EntityFlag) String() string {
	switch f {
	case FlagPrefab:
		return "prefab"
	case FlagImmutable:
		return "immutable"
	case FlagPermanent:
		return "permanent"
	case FlagOnRemove:
		return "on_remove"
	case FlagOnMutate:
		return "on_mutate"
	}
	return "unknown"
}

// Flags is an entity's flag record. It is stored as an ordinary component;
// an entity without it has every flag unset.
type Flags struct {
	bits mask.Mask
}

// Has reports whether flag is set.
func (f Flags) Has(flag EntityFlag) bool {
	var m mask.Mask
	m.Mark(uint32(flag))
	return f.bits.ContainsAll(m)
}

// Empty reports whether no flag is set.
func (f Flags) Empty() bool { return f.bits == mask.Mask{} }

var flagsComponent = FactoryNewComponent[Flags]()

// Flags returns e's flag record.
func (w *World) Flags(e EntityID) Flags {
	st, err := typedStorage[Flags](w, w.flagsID)
	if err != nil {
		return Flags{}
	}
	if p := st.get(e); p != nil {
		return *p
	}
	return Flags{}
}

// FlagsID returns the component ID of the flag record, for use in queries.
func (w *World) FlagsID() ComponentID { return w.flagsID }

// setFlag updates one flag, dropping the record once it is empty. Immutable
// entities may still change their flags.
func (w *World) setFlag(e EntityID, flag EntityFlag, on bool) error {
	switch {
	case w.freed:
		return ErrWorldFreed
	case !w.entities.alive.Has(e):
		return EntityNotFoundError{Entity: e}
	}
	st, err := typedStorage[Flags](w, w.flagsID)
	if err != nil {
		return err
	}
	f := w.Flags(e)
	if f.Has(flag) == on {
		return nil
	}
	if w.locked {
		return LockedWorldError{}
	}
	if on {
		f.bits.Mark(uint32(flag))
	} else {
		f.bits.Unmark(uint32(flag))
	}
	if f.Empty() {
		if st.remove(e) {
			w.detached(e, w.flagsID)
		}
		return nil
	}
	if st.set(e, f) {
		w.attached(e, w.flagsID)
	}
	return nil
}

// SetPrefab marks or unmarks e as a prefab.
func (w *World) SetPrefab(e EntityID, on bool) error { return w.setFlag(e, FlagPrefab, on) }

// SetImmutable freezes or thaws e's components.
func (w *World) SetImmutable(e EntityID, on bool) error { return w.setFlag(e, FlagImmutable, on) }

// SetPermanent pins or unpins e against removal. Entities holding relations
// stay permanent until their last relation is removed.
func (w *World) SetPermanent(e EntityID, on bool) error {
	if !on && w.relations.sourceCount(e) > 0 {
		return PermanentEntityError{Entity: e}
	}
	return w.setFlag(e, FlagPermanent, on)
}
