package sweep

import "fmt"

// Job is one (model, input file) pair. Index is its position in the sweep.
type Job struct {
	Model     string
	InputFile string
	Index     int
}

func (j Job) String() string {
	return fmt.Sprintf("#%d %s/%s", j.Index, j.Model, j.InputFile)
}

// jobsFor returns the jobs of model, numbered from first.
func jobsFor(first int, model string, files []string) []Job {
	jobs := make([]Job, len(files))
	for i, file := range files {
		jobs[i] = Job{
			Model:     model,
			InputFile: file,
			Index:     first + i,
		}
	}

	return jobs
}

// Expand returns every (model, file) pair, all files of the first model first.
func Expand(models, files []string) []Job {
	jobs := make([]Job, 0, len(models)*len(files))
	for _, model := range models {
		jobs = append(jobs, jobsFor(len(jobs), model, files)...)
	}

	return jobs
}
