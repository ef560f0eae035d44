package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oakhurst-labs/frontdesk/internal/config"
	"github.com/oakhurst-labs/frontdesk/internal/domain"
	"github.com/oakhurst-labs/frontdesk/internal/store"
)

func newAppointmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointments",
		Short: "Inspect the local appointment log",
	}
	cmd.AddCommand(newAppointmentsListCmd())
	cmd.AddCommand(newAppointmentsPendingCmd())
	cmd.AddCommand(newAppointmentsConfirmCmd())
	return cmd
}

func openAppointments() (*store.AppointmentStore, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		return nil, nil, err
	}
	return store.NewAppointmentStore(db), func() { db.Close() }, nil
}

func printAppointments(appts []*domain.Appointment) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCUSTOMER\tSERVICE\tDATE\tTIME\tSTATUS")
	for _, a := range appts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.CustomerName, a.Service, a.Date, a.Time, a.Status)
	}
	w.Flush()
}

func newAppointmentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all appointments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appts, closeDB, err := openAppointments()
			if err != nil {
				return err
			}
			defer closeDB()

			all, err := appts.List()
			if err != nil {
				return err
			}
			printAppointments(all)
			return nil
		},
	}
}

func newAppointmentsPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List bookings awaiting manual confirmation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appts, closeDB, err := openAppointments()
			if err != nil {
				return err
			}
			defer closeDB()

			pending, err := appts.ListPending()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Println("nothing pending")
				return nil
			}
			printAppointments(pending)
			return nil
		},
	}
}

func newAppointmentsConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <id>",
		Short: "Confirm a pending booking after placing it on the calendar by hand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appts, closeDB, err := openAppointments()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := appts.UpdateStatus(args[0], domain.StatusConfirmed); err != nil {
				return err
			}
			fmt.Printf("appointment %s confirmed\n", args[0])
			return nil
		},
	}
}
