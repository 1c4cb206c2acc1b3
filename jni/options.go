package jni

// Options carries VM creation parameters. Option strings are passed to the
// VM verbatim, in order, exactly as a java launcher would receive them
// (for example "-Djava.class.path=..." or "-Xmx512m").
type Options struct {
	Options []string

	// IgnoreUnrecognized asks the VM to skip option strings it does not
	// understand instead of failing creation.
	IgnoreUnrecognized bool
}
