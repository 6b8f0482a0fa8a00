package form

// Field is a leaf control that stores its value directly.
type Field struct {
	leaf
	value any
}

var _ controlImpl = (*Field)(nil)

// NewField creates a field. In multiple mode the value is a []any.
func NewField(r *Registry, opts ...Option) (*Field, error) {
	cfg := newNodeConfig(opts)
	f := &Field{}
	if err := f.initLeaf(r, KindField, cfg, f); err != nil {
		return nil, err
	}
	f.value = normalizeValue(cfg.value, f.multiple)
	f.initial = cloneValue(f.value)
	if err := f.register(cfg); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Field) valueLocked(force bool) (any, bool) {
	if !force && f.disabledLocked() {
		return nil, false
	}
	return cloneValue(f.value), true
}

// SetValue stores v. Setting an equal value is a no-op.
func (f *Field) SetValue(v any) error {
	return f.reg.updateErr(func(fx *effects) error {
		if f.destroyed {
			return newDestroyedError(f.name)
		}
		v = normalizeValue(v, f.multiple)
		if shallowEqual(f.value, v, f.multiple) {
			return nil
		}
		before := f.flagsLocked()
		f.value = v
		f.valueChangedLocked(fx, before)
		return nil
	})
}
