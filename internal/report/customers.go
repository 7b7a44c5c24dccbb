package report

import (
    "sort"
    "strings"

    "github.com/iliyamo/civeni-admin/internal/model"
)

// RollupCustomers groups charges by customer email.  Paid charges add to the
// amount spent and the payment count; refunded charges add to the refund
// totals.  Customers with neither are left out.  The result is sorted by
// most recent payment, then email.
func RollupCustomers(charges []model.Charge) []model.Customer {
    byEmail := map[string]*model.Customer{}
    methods := map[string]map[string]struct{}{}

    for _, c := range charges {
        email := strings.ToLower(strings.TrimSpace(c.CustomerEmail))
        if email == "" {
            continue
        }
        paid := c.IsPaid()
        refunded := c.Status == model.ChargeRefunded
        if !paid && !refunded {
            continue
        }

        cu, ok := byEmail[email]
        if !ok {
            cu = &model.Customer{Email: email, FirstPayment: c.Created, LastPayment: c.Created}
            byEmail[email] = cu
            methods[email] = map[string]struct{}{}
        }
        if cu.Name == "" {
            cu.Name = strings.TrimSpace(c.CustomerName)
        }
        if c.Created.Before(cu.FirstPayment) {
            cu.FirstPayment = c.Created
        }
        if !c.Created.Before(cu.LastPayment) {
            cu.LastPayment = c.Created
            if c.Brand != "" {
                cu.CardBrand = c.Brand
                cu.Last4 = c.Last4
            }
        }
        if c.Brand != "" {
            methods[email][c.Brand] = struct{}{}
        }

        if paid {
            cu.Payments++
            cu.TotalSpent += c.Gross
        }
        if refunded {
            cu.Refunds++
            if c.RefundedAmount > 0 {
                cu.RefundedAmount += c.RefundedAmount
            } else {
                cu.RefundedAmount += c.Gross
            }
        }
    }

    out := make([]model.Customer, 0, len(byEmail))
    for email, cu := range byEmail {
        cu.Methods = make([]string, 0, len(methods[email]))
        for m := range methods[email] {
            cu.Methods = append(cu.Methods, m)
        }
        sort.Strings(cu.Methods)
        out = append(out, *cu)
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].LastPayment.Equal(out[j].LastPayment) {
            return out[i].LastPayment.After(out[j].LastPayment)
        }
        return out[i].Email < out[j].Email
    })
    return out
}

// SearchCustomers keeps customers whose email or name contains q
// (case-insensitive).  An empty query returns the input unchanged.
func SearchCustomers(customers []model.Customer, q string) []model.Customer {
    q = strings.ToLower(strings.TrimSpace(q))
    if q == "" {
        return customers
    }
    out := make([]model.Customer, 0, len(customers))
    for _, c := range customers {
        if strings.Contains(c.Email, q) || strings.Contains(strings.ToLower(c.Name), q) {
            out = append(out, c)
        }
    }
    return out
}
