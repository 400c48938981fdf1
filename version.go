package spawn

// Version is the current version of the go-spawn library
const Version = "0.3.0"
