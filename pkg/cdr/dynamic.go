package cdr

// Dynamic values carry one sample of a registered type without a compiled
// binding: structs are map[string]any keyed by field name, sequences and
// arrays are []any, and primitives use their natural Go types (bool, byte,
// int16/uint16, int32/uint32, int64/uint64, float32/float64, string).
// Enums are int32. Unions are a single-entry map naming the active member.
// Long doubles are carried at double precision.

// EncodeValue serializes v against the type descriptor t. Struct fields
// are emitted in declaration order for FINAL/EXTENSIBLE extensibility and
// as a parameter list keyed by each field's @ID under MUTABLE. reg resolves
// TCTypeRef nodes and may be nil for self-contained types.
func EncodeValue(w *Writer, reg *Registry, t *Type, v any) error {
	var err error
	if t, err = resolve(reg, t); err != nil {
		return err
	}
	switch t.Code {
	case TCBoolean:
		b, ok := v.(bool)
		if !ok {
			return ErrValueMismatch("expected bool for " + t.Name)
		}
		w.Bool(b)
	case TCOctet, TCChar:
		b, ok := v.(byte)
		if !ok {
			return ErrValueMismatch("expected byte for " + t.Name)
		}
		w.Octet(b)
	case TCShort:
		n, ok := v.(int16)
		if !ok {
			return ErrValueMismatch("expected int16 for " + t.Name)
		}
		w.Short(n)
	case TCUShort:
		n, ok := v.(uint16)
		if !ok {
			return ErrValueMismatch("expected uint16 for " + t.Name)
		}
		w.UShort(n)
	case TCLong, TCEnum:
		n, ok := v.(int32)
		if !ok {
			return ErrValueMismatch("expected int32 for " + t.Name)
		}
		w.Long(n)
	case TCULong:
		n, ok := v.(uint32)
		if !ok {
			return ErrValueMismatch("expected uint32 for " + t.Name)
		}
		w.ULong(n)
	case TCLongLong:
		n, ok := v.(int64)
		if !ok {
			return ErrValueMismatch("expected int64 for " + t.Name)
		}
		w.LongLong(n)
	case TCULongLong:
		n, ok := v.(uint64)
		if !ok {
			return ErrValueMismatch("expected uint64 for " + t.Name)
		}
		w.ULongLong(n)
	case TCFloat:
		f, ok := v.(float32)
		if !ok {
			return ErrValueMismatch("expected float32 for " + t.Name)
		}
		w.Float(f)
	case TCDouble, TCLongDouble:
		f, ok := v.(float64)
		if !ok {
			return ErrValueMismatch("expected float64 for " + t.Name)
		}
		w.Double(f)
	case TCString:
		s, ok := v.(string)
		if !ok {
			return ErrValueMismatch("expected string for " + t.Name)
		}
		if t.Bound > 0 && len(s) > t.Bound {
			return ErrValueMismatch("string exceeds bound for " + t.Name)
		}
		w.String(s)
	case TCSequence:
		items, ok := v.([]any)
		if !ok {
			return ErrValueMismatch("expected []any sequence for " + t.Name)
		}
		if t.Bound > 0 && len(items) > t.Bound {
			return ErrValueMismatch("sequence exceeds bound for " + t.Name)
		}
		w.SeqLen(len(items))
		for _, item := range items {
			if err := EncodeValue(w, reg, t.Element, item); err != nil {
				return err
			}
		}
	case TCArray:
		items, ok := v.([]any)
		if !ok || len(items) != t.Bound {
			return ErrValueMismatch("expected []any of exact array length for " + t.Name)
		}
		for _, item := range items {
			if err := EncodeValue(w, reg, t.Element, item); err != nil {
				return err
			}
		}
	case TCStruct:
		fields, ok := v.(map[string]any)
		if !ok {
			return ErrValueMismatch("expected map[string]any struct for " + t.Name)
		}
		if t.Extensibility == Mutable {
			return encodeMutableStruct(w, reg, t, fields)
		}
		for _, f := range t.Fields {
			fv, ok := fields[f.Name]
			if !ok {
				return ErrValueMismatch("missing field " + f.Name + " of " + t.Name)
			}
			if err := EncodeValue(w, reg, f.Type, fv); err != nil {
				return err
			}
		}
	case TCUnion:
		branch, ok := v.(map[string]any)
		if !ok || len(branch) != 1 {
			return ErrValueMismatch("expected single-entry map union for " + t.Name)
		}
		for i, f := range t.Fields {
			fv, active := branch[f.Name]
			if !active {
				continue
			}
			w.Long(int32(i))
			return EncodeValue(w, reg, f.Type, fv)
		}
		return ErrValueMismatch("union branch names no member of " + t.Name)
	default:
		return ErrValueMismatch("unencodable type code for " + t.Name)
	}
	return nil
}

// encodeMutableStruct emits each present field as its own freshly-aligned
// parameter keyed by @ID, terminated by the sentinel (PL_CDR).
func encodeMutableStruct(w *Writer, reg *Registry, t *Type, fields map[string]any) error {
	var params []Param
	for _, f := range t.Fields {
		fv, ok := fields[f.Name]
		if !ok {
			continue // optional under MUTABLE: absent fields are simply not emitted.
		}
		fw := NewWriter(endianOf(w.order))
		if err := EncodeValue(fw, reg, f.Type, fv); err != nil {
			return err
		}
		params = append(params, Param{ID: f.ID, Value: fw.Bytes()})
	}
	w.WriteParamList(params)
	return nil
}

// DecodeValue deserializes one value of type t from r, the inverse of
// EncodeValue.
func DecodeValue(r *Reader, reg *Registry, t *Type) (any, error) {
	var err error
	if t, err = resolve(reg, t); err != nil {
		return nil, err
	}
	switch t.Code {
	case TCBoolean:
		return r.Bool()
	case TCOctet, TCChar:
		return r.Octet()
	case TCShort:
		return r.Short()
	case TCUShort:
		return r.UShort()
	case TCLong, TCEnum:
		return r.Long()
	case TCULong:
		return r.ULong()
	case TCLongLong:
		return r.LongLong()
	case TCULongLong:
		return r.ULongLong()
	case TCFloat:
		return r.Float()
	case TCDouble, TCLongDouble:
		return r.Double()
	case TCString:
		return r.String()
	case TCSequence:
		n, err := r.SeqLen()
		if err != nil {
			return nil, err
		}
		items := make([]any, 0, n)
		for i := 0; i < n; i++ {
			item, err := DecodeValue(r, reg, t.Element)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case TCArray:
		items := make([]any, 0, t.Bound)
		for i := 0; i < t.Bound; i++ {
			item, err := DecodeValue(r, reg, t.Element)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case TCStruct:
		if t.Extensibility == Mutable {
			return decodeMutableStruct(r, reg, t)
		}
		fields := make(map[string]any, len(t.Fields))
		for _, f := range t.Fields {
			fv, err := DecodeValue(r, reg, f.Type)
			if err != nil {
				return nil, err
			}
			fields[f.Name] = fv
		}
		return fields, nil
	case TCUnion:
		disc, err := r.Long()
		if err != nil {
			return nil, err
		}
		if disc < 0 || int(disc) >= len(t.Fields) {
			return nil, ErrValueMismatch("union discriminator out of range for " + t.Name)
		}
		f := t.Fields[disc]
		fv, err := DecodeValue(r, reg, f.Type)
		if err != nil {
			return nil, err
		}
		return map[string]any{f.Name: fv}, nil
	default:
		return nil, ErrValueMismatch("undecodable type code for " + t.Name)
	}
}

// decodeMutableStruct reads the parameter list and decodes each parameter
// whose @ID matches a known field; unknown ids are skipped, absent fields
// are left out of the returned map.
func decodeMutableStruct(r *Reader, reg *Registry, t *Type) (any, error) {
	params, err := r.ReadParamList()
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		p, ok := Find(params, f.ID)
		if !ok {
			continue
		}
		fr := NewReader(endianOf(r.order), p.Value)
		fv, err := DecodeValue(fr, reg, f.Type)
		if err != nil {
			return nil, err
		}
		fields[f.Name] = fv
	}
	return fields, nil
}

func resolve(reg *Registry, t *Type) (*Type, error) {
	if t == nil {
		return nil, ErrValueMismatch("nil type descriptor")
	}
	if t.Code != TCTypeRef {
		return t, nil
	}
	if reg == nil {
		return nil, ErrUnknownTypeRef(t.Name)
	}
	return reg.Resolve(t)
}
