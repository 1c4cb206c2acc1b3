package jvm

// Companion classes, in the slash form FindClass expects. The bridge talks
// to the JVM exclusively through these; user classes are named in data, not
// resolved through JNI.
const (
	factoryClassName  = "org/astonbitecode/j4rs/api/instantiation/NativeInstantiationImpl"
	proxyClassName    = "org/astonbitecode/j4rs/api/NativeInvocation"
	invArgClassName   = "org/astonbitecode/j4rs/api/dtos/InvocationArg"
	callbackClassName = "org/astonbitecode/j4rs/api/invocation/NativeCallbackToRustChannelSupport"
)

// Dot-form class names used as argument type tags on the wire.
const (
	ClassString    = "java.lang.String"
	ClassBoolean   = "java.lang.Boolean"
	ClassByte      = "java.lang.Byte"
	ClassCharacter = "java.lang.Character"
	ClassShort     = "java.lang.Short"
	ClassInteger   = "java.lang.Integer"
	ClassLong      = "java.lang.Long"
	ClassFloat     = "java.lang.Float"
	ClassDouble    = "java.lang.Double"
	ClassVoid      = "void"
)

// classNameUnknown tags instances whose runtime class the bridge does not
// track, such as invocation results.
const classNameUnknown = "unknown"

// JNI type signatures of every companion member the bridge resolves.
const (
	sigProxy     = "L" + proxyClassName + ";"
	sigInvArgArr = "[L" + invArgClassName + ";"

	sigInstantiate     = "(Ljava/lang/String;" + sigInvArgArr + ")" + sigProxy
	sigCreateForStatic = "(Ljava/lang/String;)" + sigProxy
	sigCreateJavaArray = "(Ljava/lang/String;" + sigInvArgArr + ")" + sigProxy
	sigCreateJavaList  = "(Ljava/lang/String;" + sigInvArgArr + ")" + sigProxy

	sigInvoke          = "(Ljava/lang/String;" + sigInvArgArr + ")" + sigProxy
	sigInvokeStatic    = "(Ljava/lang/String;" + sigInvArgArr + ")" + sigProxy
	sigField           = "(Ljava/lang/String;)" + sigProxy
	sigGetJSON         = "()Ljava/lang/String;"
	sigInvokeToChannel = "(JLjava/lang/String;" + sigInvArgArr + ")V"
	sigInitCallback    = "(J)V"
	sigCloneInstance   = "(" + sigProxy + ")" + sigProxy
	sigCast            = "(" + sigProxy + "Ljava/lang/String;)" + sigProxy

	sigInvArgJavaCtor       = "(Ljava/lang/String;" + sigProxy + ")V"
	sigInvArgSerializedCtor = "(Ljava/lang/String;Ljava/lang/String;)V"
	sigInvArgBasicCtor      = "(Ljava/lang/String;Ljava/lang/Object;)V"

	sigInitialize = "(Ljava/lang/String;)V"
)

// slashed converts a dot-form binary name to the slash form.
func slashed(dotName string) string {
	out := []byte(dotName)
	for i, c := range out {
		if c == '.' {
			out[i] = '/'
		}
	}
	return string(out)
}
