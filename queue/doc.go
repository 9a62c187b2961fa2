// Package queue manages DRP queue directories.
//
// A queue directory holds pipeline definition files (DRFs) staged under the
// naming convention
//
//	{index:03d}.{name}.{status}
//
// where index is the 1-based position assigned when the directory was
// prepared and status is the marker the pipeline moves from waiting to done
// or failed. Entry is the in-memory record of one such file; FileName and
// ParseEntry translate between the record and its on-disk name.
package queue
