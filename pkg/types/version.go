package types

// Version names one published revision of an extension's configuration shape.
// Versions are opaque: the SDK never parses or orders them, it only compares
// them for equality and follows registered migrators between them.
type Version string

// String returns the version name.
func (v Version) String() string {
	return string(v)
}

// Versions converts plain strings to Versions, preserving order.
func Versions(names ...string) []Version {
	out := make([]Version, len(names))
	for i, n := range names {
		out[i] = Version(n)
	}
	return out
}
