package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medbot/medbot/internal/domain/appointment"
	"github.com/medbot/medbot/internal/domain/conversation"
)

const chatHelp = `Describe a symptom to start. Commands:
  /book N SLOT    book doctor N from the last recommendations at SLOT
  /appointments   list your appointments
  /clear          clear the conversation
  /quit           exit`

func chatCmd() *cobra.Command {
	var patientID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with MedBot in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := loadConfig()
			a, err := newApp(cfg, logger.Level(zerolog.WarnLevel))
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), a.chat, a.appointments, patientID, os.Stdin, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&patientID, "patient", "patient_user", "patient username the conversation belongs to")
	return cmd
}

// runChat reads one message per line from in until EOF or /quit.
func runChat(ctx context.Context, svc *conversation.Service, appts *appointment.Service, patientID string, in io.Reader, out io.Writer) error {
	v, err := svc.StartSession(ctx, patientID)
	if err != nil {
		return err
	}
	id := v.SessionID
	defer svc.EndSession(ctx, id, patientID)

	fmt.Fprintln(out, chatHelp)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch fields := strings.Fields(line); fields[0] {
		case "/quit", "/exit":
			fmt.Fprintln(out, "Goodbye.")
			return nil
		case "/clear":
			if _, err := svc.Clear(ctx, id, patientID); err != nil {
				return err
			}
			fmt.Fprintln(out, "Conversation cleared.")
		case "/appointments":
			list, err := appts.ListForPatient(ctx, patientID)
			if err != nil {
				return err
			}
			printAppointments(out, list)
		case "/book":
			bookFromChat(ctx, out, svc, id, patientID, fields[1:])
		default:
			v, err := svc.SubmitMessage(ctx, id, patientID, line)
			if err != nil {
				if errors.Is(err, conversation.ErrInvalidInput) {
					fmt.Fprintln(out, "Please type something.")
					continue
				}
				return err
			}
			printReply(out, v)
		}
	}
}

func bookFromChat(ctx context.Context, out io.Writer, svc *conversation.Service, id uuid.UUID, patientID string, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(out, "Usage: /book N SLOT")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(out, "Doctor number must be a number.")
		return
	}
	a, err := svc.Book(ctx, id, patientID, conversation.BookingRequest{DoctorIndex: n - 1, Slot: args[1]})
	switch {
	case errors.Is(err, appointment.ErrOutOfRangeSelection):
		fmt.Fprintln(out, "That doctor or slot is not available.")
	case errors.Is(err, appointment.ErrInvalidInput):
		fmt.Fprintln(out, "Please choose a time slot.")
	case err != nil:
		fmt.Fprintf(out, "Booking failed: %v\n", err)
	default:
		fmt.Fprintf(out, "Booked %s at %s (%s).\n", a.DoctorName, a.TimeSlot, a.Status)
	}
}

func printReply(out io.Writer, v *conversation.View) {
	for _, turn := range v.Reply {
		if turn.Speaker == conversation.SpeakerBot {
			fmt.Fprintf(out, "MedBot: %s\n", turn.Text)
		}
	}
	if v.PendingQuestion != "" || v.Recommendations == nil {
		return
	}
	if len(v.Recommendations.Doctors) == 0 {
		fmt.Fprintf(out, "MedBot: %s\n", v.Recommendations.Message)
		return
	}
	for i, d := range v.Recommendations.Doctors {
		fmt.Fprintf(out, "  %d. %s (%s, %.1f) slots: %s\n", i+1, d.Name, d.Specialty, d.Rating, strings.Join(d.Slots, ", "))
	}
}

func printAppointments(out io.Writer, list []appointment.Appointment) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No appointments yet.")
		return
	}
	for i, a := range list {
		fmt.Fprintf(out, "  %d. %s at %s [%s]\n", i+1, a.DoctorName, a.TimeSlot, a.Status)
	}
}
