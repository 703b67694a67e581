// Package sweep runs an external program once per (model, input file) pair.
//
// Jobs are the Cartesian product of the configured models and files, enumerated model first. They run one
// at a time: a status line is printed, the program is started with the job arguments and the runner waits
// for it to exit before moving on. A job that fails does not stop the sweep unless FailFast is set.
package sweep
