package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adilkhan-s/bikerent-client/internal/domain/models"
	"github.com/adilkhan-s/bikerent-client/internal/domain/types"
)

var errUsage = errors.New("bad command usage")

// requireSession restores the persisted session before an authorized command.
func (a *App) requireSession(ctx context.Context) (*models.Session, error) {
	sess, err := a.session.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("not logged in, run 'bikerent login <email>' first")
	}
	return sess, nil
}

func (a *App) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: login <email>", errUsage)
	}
	email := args[0]

	password := os.Getenv("BIKERENT_PASSWORD")
	if password == "" {
		fmt.Print("Password: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	sess, err := a.session.Login(ctx, email, password)
	if err != nil {
		return describeAuthError(err)
	}

	fmt.Printf("Logged in as %s (%s)\n", sess.Username, sess.Email)
	return nil
}

func (a *App) cmdLogout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func (a *App) cmdWhoami(ctx context.Context) error {
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("User:     %s\n", sess.Username)
	fmt.Printf("Email:    %s\n", sess.Email)
	fmt.Printf("Role:     %s\n", sess.Role)
	fmt.Printf("Verified: %v\n", sess.Verified)
	fmt.Printf("Access credential expires at %s\n", sess.AccessExpiresAt.Format(time.RFC3339))
	return nil
}

func (a *App) cmdBikes(ctx context.Context) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	bikes, err := a.booking.ListBikes(ctx)
	if err != nil {
		return describeError(err)
	}

	for _, bike := range bikes {
		fmt.Printf("%s  %-24s %8.2f/hr  %s\n", bike.ID, bike.Name, bike.PricePerHour, bike.Status)
	}
	return nil
}

func (a *App) cmdBook(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: book <bike-id> <start> <end>", errUsage)
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	start, err := time.Parse(time.RFC3339, args[1])
	if err != nil {
		return fmt.Errorf("bad start time %q: %w", args[1], err)
	}
	end, err := time.Parse(time.RFC3339, args[2])
	if err != nil {
		return fmt.Errorf("bad end time %q: %w", args[2], err)
	}

	b, err := a.booking.Request(ctx, args[0], start, end)
	if err != nil {
		return describeError(err)
	}

	fmt.Printf("Booking %s created: %s, total %.2f\n", b.ID, b.Status, b.TotalPrice)
	return nil
}

func (a *App) cmdBookings(ctx context.Context) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	bookings, err := a.booking.List(ctx)
	if err != nil {
		return describeError(err)
	}

	for _, b := range bookings {
		fmt.Printf("%s  %-10s %-20s %s -> %s  %.2f\n",
			b.ID, b.Status, b.Bike.Name,
			b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339),
			b.TotalPrice,
		)
	}
	return nil
}

func (a *App) cmdShow(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: show <booking-id>", errUsage)
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	b, err := a.booking.Get(ctx, args[0])
	if err != nil {
		return describeError(err)
	}

	fmt.Printf("Booking:  %s\n", b.ID)
	fmt.Printf("Bike:     %s (%.2f/hr)\n", b.Bike.Name, b.Bike.PricePerHour)
	fmt.Printf("Status:   %s\n", b.Status)
	fmt.Printf("Window:   %s -> %s\n", b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339))
	fmt.Printf("Total:    %.2f\n", b.TotalPrice)
	if b.ActualStart != nil {
		fmt.Printf("Started:  %s\n", b.ActualStart.Format(time.RFC3339))
	}
	if b.ActualEnd != nil {
		fmt.Printf("Ended:    %s\n", b.ActualEnd.Format(time.RFC3339))
	}
	return nil
}

func (a *App) cmdCancel(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: cancel <booking-id>", errUsage)
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	b, err := a.booking.Cancel(ctx, args[0])
	if err != nil {
		return describeError(err)
	}

	fmt.Printf("Booking %s cancelled.\n", b.ID)
	return nil
}

func (a *App) cmdStart(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: start <booking-id>", errUsage)
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	b, err := a.booking.StartRide(ctx, args[0])
	if err != nil {
		return describeError(err)
	}

	fmt.Printf("Ride started on %s at %s.\n", b.Bike.Name, b.ActualStart.Format(time.RFC3339))
	return nil
}

func (a *App) cmdEnd(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: end <booking-id>", errUsage)
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	breakdown, err := a.booking.EndRide(ctx, args[0])
	if err != nil {
		return describeError(err)
	}

	fmt.Printf("Ride ended.\n")
	fmt.Printf("  Booked:   %d h @ %.2f = %.2f\n", breakdown.BookedHours, breakdown.PricePerHour, breakdown.OriginalCost)
	fmt.Printf("  Actual:   %d h @ %.2f = %.2f\n", breakdown.ActualHours, breakdown.PricePerHour, breakdown.ActualCost)
	switch {
	case breakdown.Difference > 0:
		fmt.Printf("  You owe %.2f more than booked.\n", breakdown.Difference)
	case breakdown.Difference < 0:
		fmt.Printf("  You saved %.2f against the booked price.\n", -breakdown.Difference)
	default:
		fmt.Printf("  Final cost matches the booked price.\n")
	}
	return nil
}

func (a *App) cmdReview(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: review <bike-id> <rating> <comment>", errUsage)
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad rating %q: %w", args[1], err)
	}
	comment := strings.Join(args[2:], " ")

	review, err := a.booking.SubmitReview(ctx, args[0], rating, comment)
	if err != nil {
		return describeError(err)
	}

	fmt.Printf("Review %s submitted: %d/5\n", review.ID, review.Rating)
	return nil
}

func (a *App) cmdWatch(ctx context.Context) error {
	if a.stream == nil {
		return errors.New("stream is disabled in config")
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	go func() {
		for update := range a.stream.Updates() {
			line := fmt.Sprintf("%s  booking %s -> %s",
				update.Timestamp.Format(time.RFC3339), update.BookingID, update.Status)
			if update.FinalPrice != nil {
				line += fmt.Sprintf(" (final price %.2f)", *update.FinalPrice)
			}
			fmt.Println(line)
		}
	}()

	err := a.stream.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// describeError keeps the failure taxonomy user-readable: stale views tell
// the user to refresh, validation failures list the fields.
func describeError(err error) error {
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		parts := make([]string, 0, len(ve.Fields))
		for field, msg := range ve.Fields {
			parts = append(parts, field+": "+msg)
		}
		return fmt.Errorf("invalid input (%s)", strings.Join(parts, "; "))
	}

	var ite *types.InvalidTransitionError
	if errors.As(err, &ite) {
		return fmt.Errorf("%w. The booking changed since you last looked, fetch it again with 'bikerent show %s'", ite, ite.BookingID)
	}

	var ce *types.ConflictError
	if errors.As(err, &ce) {
		return fmt.Errorf("cannot complete: %w", ce)
	}

	return describeAuthError(err)
}

func describeAuthError(err error) error {
	var ae *types.AuthError
	if !errors.As(err, &ae) {
		return err
	}

	switch ae.Kind {
	case types.AuthInvalidCredentials:
		return errors.New("invalid email or password")
	case types.AuthSessionExpired:
		return errors.New("session expired, run 'bikerent login <email>' again")
	case types.AuthValidation:
		return fmt.Errorf("invalid login input: %v", ae.Fields)
	case types.AuthNetwork:
		return fmt.Errorf("could not reach the rental service: %w", ae)
	default:
		return fmt.Errorf("rental service error: %w", ae)
	}
}
