package check

// Key identifies the document an issue was raised against.
type Key struct {
	Root string
	Path string
}

// Issue is one detected defect: message text, a critical flag, and whether
// the corresponding repair was applied this run.
type Issue struct {
	Key      Key
	Text     string
	Critical bool
	Fixed    bool
}

// FileIssues accumulates the issues of one document.
type FileIssues struct {
	Key        Key
	Issues     []*Issue
	FixedCount int
}

// Ledger collects issues per document, in the order documents were first
// flagged. A fresh ledger is created for every validation pass; the driver
// keeps whichever snapshots it needs for reporting.
type Ledger struct {
	order []Key
	files map[Key]*FileIssues
	total int
	fixed int
}

// NewLedger creates an empty issue ledger.
func NewLedger() *Ledger {
	return &Ledger{files: make(map[Key]*FileIssues)}
}

// Add appends an issue for the given document.
func (l *Ledger) Add(key Key, text string, critical bool) *Issue {
	issue := &Issue{Key: key, Text: text, Critical: critical}

	file, ok := l.files[key]
	if !ok {
		file = &FileIssues{Key: key}
		l.files[key] = file
		l.order = append(l.order, key)
	}
	file.Issues = append(file.Issues, issue)
	l.total++
	return issue
}

// markFixed records that an issue's repair was applied.
func (l *Ledger) markFixed(issue *Issue) {
	if issue.Fixed {
		return
	}
	issue.Fixed = true
	if file, ok := l.files[issue.Key]; ok {
		file.FixedCount++
	}
	l.fixed++
}

// Files returns the per-document issue groups in first-flagged order.
func (l *Ledger) Files() []*FileIssues {
	out := make([]*FileIssues, 0, len(l.order))
	for _, key := range l.order {
		out = append(out, l.files[key])
	}
	return out
}

// Total returns the number of issues recorded.
func (l *Ledger) Total() int {
	return l.total
}

// Fixed returns the number of issues whose repair was applied.
func (l *Ledger) Fixed() int {
	return l.fixed
}

// Len returns the number of documents with issues.
func (l *Ledger) Len() int {
	return len(l.order)
}
