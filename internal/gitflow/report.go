package gitflow

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	planPreparedMessageConstant     = "workflow plan prepared"
	stepCompletedMessageConstant    = "workflow step completed"
	stepFailedMessageConstant       = "workflow step failed"
	transitionMessageConstant       = "workflow transitioned"
	notesUnavailableMessageConstant = "release notes unavailable"
	humanPlanTemplateConstant       = "%s on %s: %s -> %s (%d steps, dry run)"
	humanStepCompletedTemplate      = "%s: %s"
	humanStepFailedTemplate         = "%s: %s failed: %v"
	humanTransitionTemplateConstant = "%s: %s is now %s"
	humanNotesUnavailableTemplate   = "%s: no release notes for %s: %v"
	logFieldWorkflowConstant        = "workflow"
	logFieldEnvironmentConstant     = "environment"
	logFieldBranchConstant          = "branch"
	logFieldTargetBranchConstant    = "target_branch"
	logFieldStateConstant           = "state"
	logFieldTargetStateConstant     = "target_state"
	logFieldStepConstant            = "step"
	logFieldStepsConstant           = "steps"
	logFieldVersionConstant         = "version"
)

// stepReporter logs workflow progress either as console sentences or as structured fields.
type stepReporter struct {
	logger        *zap.Logger
	humanReadable bool
	environment   Environment
}

func (reporter stepReporter) baseFields(plan Plan) []zap.Field {
	return []zap.Field{
		zap.String(logFieldWorkflowConstant, plan.Workflow.String()),
		zap.String(logFieldEnvironmentConstant, string(reporter.environment)),
		zap.String(logFieldBranchConstant, plan.Branch),
		zap.String(logFieldTargetBranchConstant, plan.TargetBranch),
	}
}

func (reporter stepReporter) planned(plan Plan) {
	if reporter.humanReadable {
		reporter.logger.Info(fmt.Sprintf(humanPlanTemplateConstant, plan.Workflow, plan.Branch, plan.State, plan.TargetState, len(plan.Steps)))
		return
	}
	fields := append(reporter.baseFields(plan),
		zap.String(logFieldStateConstant, plan.State.String()),
		zap.String(logFieldTargetStateConstant, plan.TargetState.String()),
		zap.Strings(logFieldStepsConstant, plan.StepNames()),
	)
	reporter.logger.Info(planPreparedMessageConstant, fields...)
}

func (reporter stepReporter) stepCompleted(plan Plan, step PlannedStep) {
	if reporter.humanReadable {
		reporter.logger.Info(fmt.Sprintf(humanStepCompletedTemplate, plan.Workflow, step))
		return
	}
	reporter.logger.Info(stepCompletedMessageConstant, append(reporter.baseFields(plan), zap.String(logFieldStepConstant, step.Name))...)
}

func (reporter stepReporter) stepFailed(plan Plan, step PlannedStep, stepError error) {
	if reporter.humanReadable {
		reporter.logger.Warn(fmt.Sprintf(humanStepFailedTemplate, plan.Workflow, step.Name, stepError))
		return
	}
	reporter.logger.Warn(stepFailedMessageConstant, append(reporter.baseFields(plan), zap.String(logFieldStepConstant, step.Name), zap.Error(stepError))...)
}

func (reporter stepReporter) transitioned(plan Plan) {
	if reporter.humanReadable {
		reporter.logger.Info(fmt.Sprintf(humanTransitionTemplateConstant, plan.Workflow, plan.TargetBranch, plan.TargetState))
		return
	}
	fields := append(reporter.baseFields(plan),
		zap.String(logFieldStateConstant, plan.TargetState.String()),
		zap.String(logFieldVersionConstant, plan.Version.MajorMinorPatch()),
	)
	reporter.logger.Info(transitionMessageConstant, fields...)
}

func (reporter stepReporter) notesUnavailable(branch string, versionLabel string, notesError error) {
	if reporter.humanReadable {
		reporter.logger.Warn(fmt.Sprintf(humanNotesUnavailableTemplate, branch, versionLabel, notesError))
		return
	}
	reporter.logger.Warn(notesUnavailableMessageConstant,
		zap.String(logFieldEnvironmentConstant, string(reporter.environment)),
		zap.String(logFieldBranchConstant, branch),
		zap.String(logFieldVersionConstant, versionLabel),
		zap.Error(notesError),
	)
}
