package archive

// Anomaly names a non-fatal oddity noticed while loading an archive: a
// problem worth surfacing to the caller but not severe enough to abort the
// whole load. Grounded on the teacher's File.Anomalies string-accumulation
// pattern, relocated here since jar loading (not class decoding) is where
// these actually arise: duplicate manifest keys, an unreadable signature
// block, an entry whose compression method isn't understood.
const (
	AnoUnreadableSignature   = "jar signature block present but could not be parsed"
	AnoUnverifiedSignature   = "jar signature block present but chain verification failed"
	AnoUnsupportedCompressor = "archive entry uses an unsupported compression method"
	AnoDuplicateManifestKey  = "manifest declares the same key more than once"
	AnoNoManifest            = "archive has no META-INF/MANIFEST.MF entry"
)
