package handlers

import (
	"encoding/json"

	"falconeri/internal/falconeri/models"
	"falconeri/pkg/api"
)

func jobResource(j *models.Job) api.JobResource {
	return api.JobResource{
		ID:           j.ID.String(),
		Name:         j.Name,
		PipelineSpec: json.RawMessage(j.PipelineSpec),
		Status:       string(j.Status),
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

func datumResource(d *models.Datum) api.DatumResource {
	return api.DatumResource{
		ID:                     d.ID.String(),
		JobID:                  d.JobID.String(),
		Status:                 string(d.Status),
		PodName:                d.PodName,
		NodeName:               d.NodeName,
		AttemptedRunCount:      d.AttemptedRunCount,
		MaximumAllowedRunCount: d.MaximumAllowedRunCount,
		Output:                 d.Output,
		ErrorMessage:           d.ErrorMessage,
		Backtrace:              d.Backtrace,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
}

func datumResources(datums []models.Datum) []api.DatumResource {
	out := make([]api.DatumResource, len(datums))
	for i := range datums {
		out[i] = datumResource(&datums[i])
	}
	return out
}

func inputFileResource(f *models.InputFile) api.InputFileResource {
	return api.InputFileResource{
		ID:        f.ID.String(),
		JobID:     f.JobID.String(),
		DatumID:   f.DatumID.String(),
		URI:       f.URI,
		LocalPath: f.LocalPath,
		CreatedAt: f.CreatedAt,
	}
}

func inputFileResources(files []models.InputFile) []api.InputFileResource {
	out := make([]api.InputFileResource, len(files))
	for i := range files {
		out[i] = inputFileResource(&files[i])
	}
	return out
}

func outputFileResource(f *models.OutputFile) api.OutputFileResource {
	return api.OutputFileResource{
		ID:        f.ID.String(),
		JobID:     f.JobID.String(),
		DatumID:   f.DatumID.String(),
		URI:       f.URI,
		PodName:   f.PodName,
		Status:    string(f.Status),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func outputFileResources(files []models.OutputFile) []api.OutputFileResource {
	out := make([]api.OutputFileResource, len(files))
	for i := range files {
		out[i] = outputFileResource(&files[i])
	}
	return out
}

func datumStatusCounts(counts []models.DatumStatusCount) []api.DatumStatusCount {
	out := make([]api.DatumStatusCount, len(counts))
	for i, c := range counts {
		out[i] = api.DatumStatusCount{Status: string(c.Status), Count: c.Count}
	}
	return out
}
