package config

import (
	"fmt"
	"strings"
)

// Selector names a fixed element of the web application.
type Selector int

const (
	// login form
	LoginEmailInput Selector = iota
	LoginPasswordInput
	LoginSubmitButton
	LoginTwoFactorContainer
	LoginSaveDeviceButton

	// navigation
	NavLogoutIcon
	NavDepositArrow
	NavMenuToggle

	// trade panel
	OpExpandWindows
	OpMoreOptions
	OpLimitInput
	OpLimitButton
	OpBuyButton
	OpBuyAmountInput
	OpSellButton
	OpSellAmountInput
	OpReviewButton
	OpConfirmButton

	// orders list
	OrderList
	OrderCancelButton

	// shared
	CommonSearchInput
	CommonContinueButton
	CommonLoadingSpinner
	ListSearchList

	// withdraw form
	TransferWithdrawButton
	TransferCurrencyARS
	TransferCurrencyUSD
	TransferAmountInput
	TransferContinueButton

	// feedback
	MessageError
	MessageSuccess
	MessageConfirmationDialog

	// portfolio
	PortfolioTotalBalance
	PortfolioTable

	numSelectors
)

var selectorNames = [numSelectors]string{
	LoginEmailInput:           "login.email_input",
	LoginPasswordInput:        "login.password_input",
	LoginSubmitButton:         "login.submit_button",
	LoginTwoFactorContainer:   "login.two_factor_container",
	LoginSaveDeviceButton:     "login.save_device_button",
	NavLogoutIcon:             "navigation.logout_icon",
	NavDepositArrow:           "navigation.deposit_arrow",
	NavMenuToggle:             "navigation.menu_toggle",
	OpExpandWindows:           "operation.expand_windows",
	OpMoreOptions:             "operation.more_options",
	OpLimitInput:              "operation.limit_input",
	OpLimitButton:             "operation.limit_button",
	OpBuyButton:               "operation.buy.button",
	OpBuyAmountInput:          "operation.buy.amount_input",
	OpSellButton:              "operation.sell.button",
	OpSellAmountInput:         "operation.sell.amount_input",
	OpReviewButton:            "operation.confirm.review_buy",
	OpConfirmButton:           "operation.confirm.confirm",
	OrderList:                 "order.orders_list",
	OrderCancelButton:         "order.cancel_button",
	CommonSearchInput:         "common.search_input",
	CommonContinueButton:      "common.continue_button",
	CommonLoadingSpinner:      "common.loading_spinner",
	ListSearchList:            "list.search_list",
	TransferWithdrawButton:    "transfer.withdraw_button",
	TransferCurrencyARS:       "transfer.currency_ars",
	TransferCurrencyUSD:       "transfer.currency_usd",
	TransferAmountInput:       "transfer.amount_input",
	TransferContinueButton:    "transfer.continue_button",
	MessageError:              "message.error_message",
	MessageSuccess:            "message.success_message",
	MessageConfirmationDialog: "message.confirmation_dialog",
	PortfolioTotalBalance:     "portfolio.total_balance",
	PortfolioTable:            "portfolio.portfolio_table",
}

var defaultSelectors = [numSelectors]string{
	LoginEmailInput:           `input[type="email"]`,
	LoginPasswordInput:        `input[type="password"]`,
	LoginSubmitButton:         `button[type="submit"]`,
	LoginTwoFactorContainer:   `div.two-factor-container`,
	LoginSaveDeviceButton:     `button:has-text("Guardar dispositivo")`,
	NavLogoutIcon:             `svg.logout-icon`,
	NavDepositArrow:           `svg.deposit-arrow`,
	NavMenuToggle:             `button.menu-toggle`,
	OpExpandWindows:           `button.expand-windows`,
	OpMoreOptions:             `button:has-text("Más opciones")`,
	OpLimitInput:              `input[name="limit"]`,
	OpLimitButton:             `button:has-text("Límite")`,
	OpBuyButton:               `button:has-text("Compra")`,
	OpBuyAmountInput:          `input[name="buy-amount"]`,
	OpSellButton:              `button:has-text("Venta")`,
	OpSellAmountInput:         `input[name="sell-amount"]`,
	OpReviewButton:            `button:has-text("Revisar compra")`,
	OpConfirmButton:           `button:has-text("Confirmar")`,
	OrderList:                 `div.orders-list`,
	OrderCancelButton:         `button:has-text("Cancelar orden")`,
	CommonSearchInput:         `input[placeholder*="Buscar"]`,
	CommonContinueButton:      `button:has-text("Continuar")`,
	CommonLoadingSpinner:      `div.MuiCircularProgress-root`,
	ListSearchList:            `ul.MuiList-root.search-list`,
	TransferWithdrawButton:    `button:has-text("Retirar")`,
	TransferCurrencyARS:       `button:has-text("ARS")`,
	TransferCurrencyUSD:       `button:has-text("USD")`,
	TransferAmountInput:       `input[name="amount"]`,
	TransferContinueButton:    `button:has-text("Continuar")`,
	MessageError:              `div.error-message`,
	MessageSuccess:            `div.success-message`,
	MessageConfirmationDialog: `div[role="dialog"]`,
	PortfolioTotalBalance:     `div.total-balance`,
	PortfolioTable:            `table.portfolio-table`,
}

func (s Selector) String() string {
	if s < 0 || s >= numSelectors {
		return fmt.Sprintf("Selector(%d)", int(s))
	}
	return selectorNames[s]
}

// Template names a parameterized selector. Templates are fmt format
// strings rendered with the arguments documented on each constant.
type Template int

const (
	// ListItem renders a search result entry; args: ticker.
	ListItem Template = iota
	// OrderRow renders a pending order row; args: displayed amount, displayed quantity.
	OrderRow
	// TwoFactorDigit renders the n-th code input; args: 1-based index.
	TwoFactorDigit
	numTemplates
)

var templateNames = [numTemplates]string{
	ListItem:       "list.list_item",
	OrderRow:       "order.order_row",
	TwoFactorDigit: "login.two_factor_digit",
}

var defaultTemplates = [numTemplates]string{
	ListItem:       `ul.MuiList-root.search-list li:has-text("%s")`,
	OrderRow:       `div.order-row:has-text("%s"):has-text("%s")`,
	TwoFactorDigit: `div.two-factor-container input:nth-of-type(%d)`,
}

func (t Template) String() string {
	if t < 0 || t >= numTemplates {
		return fmt.Sprintf("Template(%d)", int(t))
	}
	return templateNames[t]
}

// SelectorTable resolves selectors and renders templates. It is a value
// type; overrides return a new table.
type SelectorTable struct {
	selectors [numSelectors]string
	templates [numTemplates]string
	messages  map[string]string
}

// DefaultSelectors returns the production selector table.
func DefaultSelectors() SelectorTable {
	return SelectorTable{
		selectors: defaultSelectors,
		templates: defaultTemplates,
		messages:  map[string]string{"BUY": "Compra", "SELL": "Venta"},
	}
}

// Get returns the CSS selector for s.
func (t SelectorTable) Get(s Selector) string {
	return t.selectors[s]
}

// Render fills template tpl with args. String arguments are escaped for
// use inside a double-quoted selector string.
func (t SelectorTable) Render(tpl Template, args ...any) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		if s, ok := a.(string); ok {
			a = quoteEscaper.Replace(s)
		}
		escaped[i] = a
	}
	return fmt.Sprintf(t.templates[tpl], escaped...)
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// OperationLabel returns the label the trade panel shows for an operation
// ("Compra" for BUY).
func (t SelectorTable) OperationLabel(op string) string {
	return t.messages[strings.ToUpper(op)]
}

// With returns a copy of t with the named selectors and templates
// replaced. Unknown names and templates whose verb count differs from the
// default are rejected.
func (t SelectorTable) With(overrides map[string]string) (SelectorTable, error) {
	out := t
	out.messages = make(map[string]string, len(t.messages))
	for k, v := range t.messages {
		out.messages[k] = v
	}
	for name, value := range overrides {
		if i := indexOf(selectorNames[:], name); i >= 0 {
			out.selectors[i] = value
			continue
		}
		if i := indexOf(templateNames[:], name); i >= 0 {
			if verbs(value) != verbs(defaultTemplates[i]) {
				return t, fmt.Errorf("selector template %q must keep %d placeholders", name, verbs(defaultTemplates[i]))
			}
			out.templates[i] = value
			continue
		}
		return t, fmt.Errorf("unknown selector %q", name)
	}
	return out, nil
}

func verbs(format string) int {
	return strings.Count(format, "%") - 2*strings.Count(format, "%%")
}
