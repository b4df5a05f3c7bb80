package tracing

// Span attribute keys.
const (
	AttrInvocationID       = "invocation.id"
	AttrInvocationName     = "invocation.name"
	AttrInvocationPriority = "invocation.priority"
	AttrInvocationOutcome  = "invocation.outcome"
	AttrWorkerID           = "worker.id"

	AttrScrollMapSections    = "scrollmap.sections"
	AttrScrollMapFingerprint = "scrollmap.fingerprint"
	AttrScrollMapCacheHit    = "scrollmap.cache_hit"
	AttrChunksLeft           = "scrollmap.chunks.left"
	AttrChunksRight          = "scrollmap.chunks.right"
)

// Span names.
const (
	SpanPoolInvoke     = "pool.invoke"
	SpanScrollMapBuild = "scrollmap.build"
)
