package orchestrator

import (
	"context"
	"strings"

	"github.com/oakhurst-labs/frontdesk/internal/availability"
	"github.com/oakhurst-labs/frontdesk/internal/domain"
)

// startModification finds the caller's booking and branches into the
// cancel or reschedule conversation.
func (o *Orchestrator) startModification(ctx context.Context, sess *domain.CallSession, lower string) domain.TurnResult {
	// Fields volunteered in the same sentence (a name, a new day) still
	// count.
	o.extractor.Extract(sess, lower)

	appt := o.findActiveAppointment(sess)
	if appt == nil {
		sess.State = domain.StateGatheringName
		return o.speak(ctx, sess, o.templates.NotFound(), domain.DirectiveContinue)
	}

	sess.SetField(fieldTargetAppt, appt.ID)
	sess.Modifying = true

	if wantsCancel(lower) {
		sess.SetField(fieldPendingAction, actionCancel)
		sess.State = domain.StateConfirming
		return o.speak(ctx, sess, o.templates.CancelPrompt(appt), domain.DirectiveContinue)
	}

	// Reschedule keeps who and what, re-gathers when.
	sess.SetField(domain.FieldName, appt.CustomerName)
	sess.SetField(domain.FieldService, appt.Service)
	sess.ClearField(domain.FieldDate)
	sess.ClearField(domain.FieldTime)
	sess.State = domain.StateGatheringDate
	return o.speak(ctx, sess, o.templates.ReschedulePrompt(appt), domain.DirectiveContinue)
}

// resolveCancel handles the yes/no answer to a pending cancel question.
func (o *Orchestrator) resolveCancel(ctx context.Context, sess *domain.CallSession, lower string) domain.TurnResult {
	appt := o.appts.Get(sess.Field(fieldTargetAppt))
	if appt == nil {
		return o.speak(ctx, sess, o.templates.Apology(), domain.DirectiveEnd)
	}

	switch {
	case isAffirmative(lower):
		if appt.EventID != "" {
			if err := o.engine.Delete(ctx, appt.EventID, appt.Date, appt.Time); err != nil {
				o.log.Warn().Err(err).Str("eventId", appt.EventID).Msg("calendar delete failed, cancelling locally")
			}
		}
		if err := o.appts.UpdateStatus(appt.ID, domain.StatusCancelled); err != nil {
			o.log.Error().Err(err).Msg("marking appointment cancelled")
		}
		sess.State = domain.StateBooked
		return o.speak(ctx, sess, o.templates.Cancelled(appt), domain.DirectiveEnd)

	case isNegative(lower):
		sess.ClearField(fieldPendingAction)
		sess.ClearField(fieldTargetAppt)
		sess.Modifying = false
		sess.State = sess.NextState()
		return o.speak(ctx, sess, "No problem, your appointment is unchanged. Is there anything else I can help with?", domain.DirectiveContinue)

	default:
		return o.speak(ctx, sess, o.templates.CancelPrompt(appt), domain.DirectiveContinue)
	}
}

// finishReschedule moves the target booking to the newly gathered slot
// through the authoritative update path.
func (o *Orchestrator) finishReschedule(ctx context.Context, sess *domain.CallSession) domain.TurnResult {
	appt := o.appts.Get(sess.Field(fieldTargetAppt))
	if appt == nil {
		return o.speak(ctx, sess, o.templates.Apology(), domain.DirectiveEnd)
	}

	moved := *appt
	moved.Date = sess.Field(domain.FieldDate)
	moved.Time = sess.Field(domain.FieldTime)

	if appt.EventID != "" {
		err := o.engine.Update(ctx, appt.EventID, &moved)
		if availability.IsConflict(err) {
			alts := o.engine.FindAlternatives(ctx, moved.Date, moved.Time, o.alternativeCount)
			sess.ClearField(domain.FieldTime)
			sess.State = domain.StateGatheringTime
			return o.speak(ctx, sess, o.templates.ConflictRecovery(moved.Date, moved.Time, alts), domain.DirectiveContinue)
		}
		if err != nil {
			o.log.Error().Err(err).Msg("reschedule failed")
			return o.speak(ctx, sess, o.templates.Apology(), domain.DirectiveEnd)
		}
	}

	if err := o.appts.UpdateSlot(appt.ID, moved.Date, moved.Time); err != nil {
		o.log.Error().Err(err).Msg("persisting reschedule")
	}
	sess.State = domain.StateBooked
	sess.Modifying = false
	return o.speak(ctx, sess, o.templates.Rescheduled(&moved), domain.DirectiveEnd)
}

func (o *Orchestrator) findActiveAppointment(sess *domain.CallSession) *domain.Appointment {
	lookup := func(appts []*domain.Appointment) *domain.Appointment {
		for _, a := range appts {
			if a.Active() {
				return a
			}
		}
		return nil
	}

	if sess.CallerNumber != "" {
		if appts, err := o.appts.FindByPhone(sess.CallerNumber); err == nil {
			if a := lookup(appts); a != nil {
				return a
			}
		}
	}
	if name := sess.Field(domain.FieldName); name != "" {
		if appts, err := o.appts.FindByName(name); err == nil {
			return lookup(appts)
		}
	}
	return nil
}

func isAffirmative(lower string) bool {
	for _, w := range []string{"yes", "yeah", "yep", "correct", "that's right", "please do", "sure"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func isNegative(lower string) bool {
	for _, w := range []string{"no", "nope", "don't", "keep it", "never mind", "nevermind"} {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
