// Package hive runs the writer/reader state machine on top of the lease.
//
// Every cycle the Loop asks the lease manager whether this process is the
// writer. The writer pushes one random message onto the work queue and waits
// WriteDelay. Everyone else pops one message, flags about one in ErrorOneIn of
// them onto the error queue, and waits ReadDelay. Roles are recomputed every
// cycle; nothing about a role survives between cycles except the lease key
// itself.
//
// DrainErrors is the one-shot report mode: it reads the error queue, deletes
// it and returns what it read.
package hive
