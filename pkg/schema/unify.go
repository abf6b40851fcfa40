package schema

// Unify checks whether a and b can be connected, recording type variable bindings as it goes.
// Both sides are resolved through the bindings first. A variable on either side is bound to the
// other side. ANY matches everything, simple types match through CanAccept in either direction,
// parameterized types match base and arguments pairwise, and a bare LIST or MAP matches any
// parameterized container of the same base.
func Unify(a, b Descriptor, bindings Bindings) bool {
	ra := a.Resolve(bindings)
	rb := b.Resolve(bindings)

	if v, ok := ra.(TypeVar); ok {
		bind(bindings, v, rb)
		return true
	}
	if v, ok := rb.(TypeVar); ok {
		bind(bindings, v, ra)
		return true
	}

	sa, aSimple := ra.(Simple)
	sb, bSimple := rb.(Simple)
	if aSimple && sa.Type == Any || bSimple && sb.Type == Any {
		return true
	}

	if aSimple && bSimple {
		return CanAccept(sa.Type, sb.Type) || CanAccept(sb.Type, sa.Type)
	}

	pa, aParam := ra.(Parameterized)
	pb, bParam := rb.(Parameterized)
	if aParam && bParam {
		if pa.Base != pb.Base || len(pa.Args) != len(pb.Args) {
			return false
		}
		for i := range pa.Args {
			if !Unify(pa.Args[i], pb.Args[i], bindings) {
				return false
			}
		}
		return true
	}

	// A bare container is compatible with any parameterized container of the same base.
	if aSimple && bParam {
		return isBareContainer(sa.Type) && sa.Type == pb.Base
	}
	if bSimple && aParam {
		return isBareContainer(sb.Type) && sb.Type == pa.Base
	}
	return false
}

func isBareContainer(t PortType) bool {
	return t == List || t == Map
}

func bind(bindings Bindings, v TypeVar, to Descriptor) {
	if other, ok := to.(TypeVar); ok && other.Name == v.Name {
		return
	}
	bindings[v.Name] = to
}
