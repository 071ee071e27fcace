package datapoint

// WriteResult is the closed set of user-visible outcomes of DPE.Write
// (spec.md §7).
type WriteResult string

const (
	Accepted      WriteResult = "Accepted"
	ReadOnly      WriteResult = "ReadOnly"
	NotWritable   WriteResult = "NotWritable"
	NotConfigured WriteResult = "NotConfigured"
	NotReady      WriteResult = "NotReady"
	OutOfRange    WriteResult = "OutOfRange"
	QueueFull     WriteResult = "QueueFull"
)
