package classifyjourney

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"journey-board/internal/app/analyzer"
	"journey-board/internal/common/errors"
	"journey-board/internal/common/logger"
	"journey-board/internal/common/metrics"
	"journey-board/internal/common/validation"
	"journey-board/internal/journey"
	"journey-board/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "classify-journey"

var inputValidator = validation.MustValidator(validation.JourneyJobInputSchema)

// Analyzer is the part of analyzer.Service the worker depends on.
type Analyzer interface {
	Analyze(ctx context.Context, req analyzer.Request) (*journey.Journey, error)
}

type Handler struct {
	config       *Config
	analyzer     Analyzer
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, a Analyzer, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig(nil)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		analyzer:     a,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := parseInput(job.GetVariables())
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// parseInput validates the job variables and accepts ids given as strings or numbers.
func parseInput(variables string) (*Input, error) {
	if variables == "" {
		variables = "{}"
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(variables)))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.NewValidationFailedError("job variables are not a JSON object: " + err.Error())
	}

	input := &Input{
		DealID:    models.String(raw["dealId"]),
		ContactID: models.String(raw["contactId"]),
	}
	if input.DealID == "" {
		return nil, errors.NewMissingInputError("dealId")
	}

	if result := inputValidator.ValidateInput(raw); !result.Valid {
		return nil, errors.NewValidationFailedError(result.Summary())
	}
	return input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	j, err := h.analyzer.Analyze(ctx, analyzer.Request{
		DealID:    input.DealID,
		ContactID: input.ContactID,
	})
	if err != nil {
		return nil, err
	}
	return newOutput(*j), nil
}

// Execute runs the classification without a job client.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.DealID == "" {
		return nil, errors.NewMissingInputError("dealId")
	}
	return h.execute(ctx, input)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		return err
	}

	if _, err := cmd.Send(ctx); err != nil {
		return err
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":   job.GetKey(),
		"dealId":   output.Journey.DealID,
		"stage":    metrics.StageLabel(output.JourneyStage),
		"substage": output.JourneySubstage,
		"score":    output.JourneyScore,
	})
	return nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := errors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}
