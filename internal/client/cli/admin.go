package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/gatekeeper/internal/accountrpc"
)

const usersPageSize = 20

func (a *App) Users(ctx context.Context, page int) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	p, err := a.api.ListAccounts(ctx, accountrpc.ListRequest{PageNo: page, PageSize: usersPageSize})
	if err != nil {
		a.printf("error: %v", err)
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tHANDLE\tROLE\tNAME\tCREATED")
	for _, r := range p.Records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Handle, r.Role, r.DisplayName, r.CreatedAt.Format("2006-01-02"))
	}
	_ = w.Flush()

	a.printf("page %d of %d, %d accounts", p.PageNo, p.TotalPages, p.Total)
	return nil
}

func (a *App) Delete(ctx context.Context, id int64) error {
	answer, err := GetSimpleText(a.reader, fmt.Sprintf("Delete account %d? (y/N)", id), a.out)
	if err != nil {
		a.printf("error: %v", err)
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		a.printf("Cancelled")
		return nil
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.api.DeleteAccount(ctx, id); err != nil {
		a.printf("error: %v", err)
		return err
	}

	a.printf("Account %d deleted", id)
	return nil
}
