package kernel

type SeekerID string

func NewSeekerID(id string) SeekerID { return SeekerID(id) }
func (s SeekerID) String() string    { return string(s) }
func (s SeekerID) IsEmpty() bool     { return string(s) == "" }

type CompanyID string

func NewCompanyID(id string) CompanyID { return CompanyID(id) }
func (c CompanyID) String() string     { return string(c) }
func (c CompanyID) IsEmpty() bool      { return string(c) == "" }

type ResumeID string

func NewResumeID(id string) ResumeID { return ResumeID(id) }
func (r ResumeID) String() string    { return string(r) }
func (r ResumeID) IsEmpty() bool     { return string(r) == "" }

type JobID string

func NewJobID(id string) JobID { return JobID(id) }
func (j JobID) String() string { return string(j) }
func (j JobID) IsEmpty() bool  { return string(j) == "" }

// RecordID identifies one embedding record. The same value keys the
// relational row and the vector-index point for a given source document.
type RecordID string

func NewRecordID(id string) RecordID { return RecordID(id) }
func (r RecordID) String() string    { return string(r) }
func (r RecordID) IsEmpty() bool     { return string(r) == "" }

type IndexJobID string

func NewIndexJobID(id string) IndexJobID { return IndexJobID(id) }
func (i IndexJobID) String() string      { return string(i) }
func (i IndexJobID) IsEmpty() bool       { return string(i) == "" }
