package analysis

// Progress receives progress of the composition evaluation, one Increment per
// candidate. Implementations must be safe for concurrent use.
type Progress interface {
	Start(total int)
	Increment()
	Finish()
}

type noProgress struct{}

func (noProgress) Start(int)  {}
func (noProgress) Increment() {}
func (noProgress) Finish()    {}
