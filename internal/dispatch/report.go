package dispatch

// DirectoryReport summarizes one directory pass.
type DirectoryReport struct {
	Dir         string
	Muxed       int
	Copied      int
	Skipped     int // image-only pairs with nowhere to go
	AlreadyDone int // images found in the ledger
	InFlight    int // images another pass was already working on
	Unmatched   int // unmatched videos copied to the output root
	Failed      int
}

// Report summarizes a batch run.
type Report struct {
	RunID             string
	Directories       int
	FailedDirectories int
	Muxed             int
	Copied            int
	Skipped           int
	AlreadyDone       int
	InFlight          int
	Unmatched         int
}

// Processed returns the number of images handled successfully.
func (r Report) Processed() int {
	return r.Muxed + r.Copied + r.Skipped
}

func (r *Report) add(d DirectoryReport) {
	r.Directories++
	r.Muxed += d.Muxed
	r.Copied += d.Copied
	r.Skipped += d.Skipped
	r.AlreadyDone += d.AlreadyDone
	r.InFlight += d.InFlight
	r.Unmatched += d.Unmatched
	if d.Failed > 0 {
		r.FailedDirectories++
	}
}
