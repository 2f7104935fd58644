package etl

// Version is the redferry release version.
const Version = "0.1.0"
