package metadata

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageCopySrc
	BufferUsageCopyDst
	BufferUsageMapRead
)

type BufferDescriptor struct {
	/** @brief The label shown by GPU debuggers. */
	Label string
	/** @brief The total size of the buffer in bytes. Rounded up to 16 by backends. */
	Size  uint64
	Usage BufferUsage
}

/** @brief A range, typically of memory */
type MemoryRange struct {
	/** @brief The Offset in bytes. */
	Offset uint64
	/** @brief The size in bytes. */
	Size uint64
}
