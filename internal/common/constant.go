package common

// DocumentsDirName is the default root for section units on the local filesystem.
const DocumentsDirName = "documents"

// MaxSectionSize is the default upper bound, in bytes, of an uploaded section.
const MaxSectionSize = 16 << 20

// MaxSessions is the default capacity of the session pool.
const MaxSessions = 100
