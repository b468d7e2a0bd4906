package main

// main function as required by Go for building a shared library.
// The PAM entry points live in module.go.
func main() {}
