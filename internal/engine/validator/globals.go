package validator

// builtinGlobals are the value and type names of the ES and Node runtime
// environment flows run in.
var builtinGlobals = toSet(
	// values
	"globalThis", "undefined", "NaN", "Infinity", "console", "process", "Buffer",
	"require", "module", "exports", "__dirname", "__filename",
	"Object", "Function", "Array", "String", "Number", "Boolean", "Symbol", "BigInt",
	"Math", "JSON", "Date", "RegExp", "Error", "TypeError", "RangeError",
	"SyntaxError", "ReferenceError", "EvalError", "URIError", "AggregateError",
	"Promise", "Map", "Set", "WeakMap", "WeakSet", "WeakRef", "Proxy", "Reflect",
	"ArrayBuffer", "SharedArrayBuffer", "DataView", "Atomics", "Intl",
	"Int8Array", "Uint8Array", "Uint8ClampedArray", "Int16Array", "Uint16Array",
	"Int32Array", "Uint32Array", "Float32Array", "Float64Array", "BigInt64Array", "BigUint64Array",
	"parseInt", "parseFloat", "isNaN", "isFinite", "encodeURI", "encodeURIComponent",
	"decodeURI", "decodeURIComponent", "escape", "unescape", "eval",
	"setTimeout", "clearTimeout", "setInterval", "clearInterval", "setImmediate",
	"clearImmediate", "queueMicrotask", "structuredClone", "atob", "btoa",
	"fetch", "Request", "Response", "Headers", "FormData", "Blob", "File",
	"URL", "URLSearchParams", "AbortController", "AbortSignal", "TextEncoder",
	"TextDecoder", "crypto", "performance", "ReadableStream", "WritableStream",
	"EventTarget", "Event",
	// types
	"Record", "Partial", "Required", "Readonly", "Pick", "Omit", "Exclude",
	"Extract", "NonNullable", "ReturnType", "Parameters", "ConstructorParameters",
	"InstanceType", "Awaited", "Uppercase", "Lowercase", "Capitalize", "Uncapitalize",
	"ThisType", "PromiseLike", "ArrayLike", "ReadonlyArray", "ReadonlyMap",
	"ReadonlySet", "Iterable", "Iterator", "IterableIterator", "AsyncIterable",
	"AsyncIterator", "AsyncIterableIterator", "Generator", "AsyncGenerator",
	"PropertyKey", "TemplateStringsArray", "NodeJS",
)

func toSet(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = true
	}
	return out
}
