package linkedptr

// Convert returns a *Ptr[T] co-owning src's object seen through conv,
// the usual case being promotion of an embedded field (derived to
// base). Only conversions the compiler accepts inside conv can be
// expressed, so type compatibility is checked at build time. The new
// handle joins src's ring and releases the original object through
// the finalizer bound at adoption, not through the converted view.
//
// conv must be a pure view conversion of its argument; it is never
// called with nil.
func Convert[T, U any](src *Ptr[U], conv func(*U) *T) *Ptr[T] {
	q := &Ptr[T]{arena: src.arena, node: src.arena.Alloc(), data: view(src.data, conv), free: src.free}
	q.arena.InsertAfter(q.node, src.node)
	return q
}

// ConvertAssign replaces dst's object with src's seen through conv,
// releasing dst's current object if dst was its sole owner. When dst
// already denotes the same ring membership as src — it is the same
// handle, or it already holds src's object — the call is a no-op, so
// self-replacement can never free the object it is supposed to keep.
func ConvertAssign[T, U any](dst *Ptr[T], src *Ptr[U], conv func(*U) *T) {
	if dst.arena == src.arena && dst.node == src.node {
		return
	}
	data := view(src.data, conv)
	if data != nil && data == dst.data {
		return
	}
	dst.freeIfUnique()
	dst.detachInto(src.arena)
	dst.data, dst.free = data, src.free
	dst.arena.InsertAfter(dst.node, src.node)
}

func view[T, U any](data *U, conv func(*U) *T) *T {
	if data == nil {
		return nil
	}
	return conv(data)
}
