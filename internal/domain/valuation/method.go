package valuation

// Method represents a costing method for inventory valuation
type Method string

const (
	// MethodFIFO consumes cost layers oldest-first
	MethodFIFO Method = "fifo"
	// MethodAVCO maintains a moving weighted-average cost
	MethodAVCO Method = "avco"
	// MethodStandard values all movements at a preset standard cost
	MethodStandard Method = "standard"
)

// DefaultMethod applies when no setting exists at any scope
const DefaultMethod = MethodAVCO

// String returns the string representation of Method
func (m Method) String() string {
	return string(m)
}

// IsValid returns true if the method is valid
func (m Method) IsValid() bool {
	switch m {
	case MethodFIFO, MethodAVCO, MethodStandard:
		return true
	}
	return false
}
