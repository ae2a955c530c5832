package supercap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jamesprial/supercap-mcp/internal/measure"
	"github.com/jamesprial/supercap-mcp/internal/safety"
	"github.com/jamesprial/supercap-mcp/internal/status"
	"github.com/jamesprial/supercap-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DestructiveTools lists the tools that require a confirmation token.
var DestructiveTools = []string{"supercap_write", "supercap_alarms"}

// intArg returns the numeric argument key as an integer. ok is false when the
// argument is absent. Fractional or out-of-range numbers are an error rather
// than being truncated.
func intArg(req mcp.CallToolRequest, key string) (v int64, ok bool, err error) {
	f := req.GetFloat(key, math.NaN())
	if math.IsNaN(f) {
		return 0, false, nil
	}
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, true, fmt.Errorf("%s must be a whole number in the 32-bit range, got %v", key, f)
	}
	return int64(f), true, nil
}

// Tools returns the supercap tool registrations.
func Tools(ctrl *Controller, confirm *safety.ConfirmationTracker, audit *safety.AuditLogger) []tools.Registration {
	return []tools.Registration{
		toolShow(ctrl, audit),
		toolRead(ctrl, audit),
		toolConvert(audit),
		toolStatus(ctrl, audit),
		toolSensors(ctrl, audit),
		toolWrite(ctrl, confirm, audit),
		toolAlarms(ctrl, confirm, audit),
	}
}

// ---------------------------------------------------------------------------
// Read-only tools
// ---------------------------------------------------------------------------

func toolShow(ctrl *Controller, audit *safety.AuditLogger) tools.Registration {
	const toolName = "supercap_show"

	tool := mcp.NewTool(toolName,
		mcp.WithDescription("List every attribute of the supercapacitor controller with its raw LSB code and the value converted to mV, F, C or mR."),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		params := map[string]any{}

		readings, err := ctrl.Show(ctx)
		if err != nil {
			tools.LogAudit(audit, toolName, params, "error: "+err.Error(), start)
			return tools.ErrorResult(err.Error()), nil
		}

		tools.LogAudit(audit, toolName, params, "ok", start)
		return tools.JSONResult(readings), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func toolRead(ctrl *Controller, audit *safety.AuditLogger) tools.Registration {
	const toolName = "supercap_read"

	tool := mcp.NewTool(toolName,
		mcp.WithDescription("Read one controller attribute. Returns the raw LSB code and the converted physical value."),
		mcp.WithString("attribute",
			mcp.Required(),
			mcp.Description("Attribute name, e.g. meas_vcap or vin_uv_lvl"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		attr := req.GetString("attribute", "")
		params := map[string]any{"attribute": attr}

		if attr == "" {
			tools.LogAudit(audit, toolName, params, "error: attribute is required", start)
			return tools.ErrorResult("attribute is required"), nil
		}

		reading, err := ctrl.Read(ctx, attr)
		if err != nil {
			tools.LogAudit(audit, toolName, params, "error: "+err.Error(), start)
			return tools.ErrorResult(err.Error()), nil
		}

		tools.LogAudit(audit, toolName, params, "ok", start)
		return tools.JSONResult(reading), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

// conversion is the supercap_convert output.
type conversion struct {
	Attribute string                `json:"attribute"`
	Kind      string                `json:"kind"`
	Raw       int64                 `json:"raw"`
	Value     measure.PhysicalValue `json:"value"`
}

func toolConvert(audit *safety.AuditLogger) tools.Registration {
	const toolName = "supercap_convert"

	tool := mcp.NewTool(toolName,
		mcp.WithDescription("Convert between a raw LSB code and a physical value for an attribute name without touching the device. Give raw to convert to a physical value, or value and unit to compute the raw code."),
		mcp.WithString("attribute",
			mcp.Required(),
			mcp.Description("Attribute name that selects the conversion law"),
		),
		mcp.WithNumber("raw",
			mcp.Description("Raw LSB code to convert to a physical value"),
		),
		mcp.WithNumber("value",
			mcp.Description("Physical value to convert to a raw code"),
		),
		mcp.WithString("unit",
			mcp.Description("Unit of value: mV, F, C, mR, or empty for the raw code itself"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		attr := req.GetString("attribute", "")
		raw, hasRaw, rawErr := intArg(req, "raw")
		value, hasValue, valueErr := intArg(req, "value")
		unit := req.GetString("unit", "")
		params := map[string]any{"attribute": attr, "unit": unit}

		fail := func(msg string) (*mcp.CallToolResult, error) {
			tools.LogAudit(audit, toolName, params, "error: "+msg, start)
			return tools.ErrorResult(msg), nil
		}

		if attr == "" {
			return fail("attribute is required")
		}

		if err := errors.Join(rawErr, valueErr); err != nil {
			return fail(err.Error())
		}

		switch {
		case hasRaw && hasValue:
			return fail("give either raw or value, not both")
		case hasRaw:
			params["raw"] = raw
		case hasValue:
			params["value"] = value
			converted, err := measure.ToRaw(attr, value, unit)
			if err != nil {
				return fail(err.Error())
			}
			raw = converted
		default:
			return fail("one of raw or value is required")
		}

		tools.LogAudit(audit, toolName, params, "ok", start)
		return tools.JSONResult(conversion{
			Attribute: attr,
			Kind:      measure.Classify(attr).String(),
			Raw:       raw,
			Value:     measure.FormatValue(attr, raw),
		}), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func toolStatus(ctrl *Controller, audit *safety.AuditLogger) tools.Registration {
	const toolName = "supercap_status"

	tool := mcp.NewTool(toolName,
		mcp.WithDescription("Decode the monitor status, alarm register and charger status words into active conditions. Active alarms include the current measurement and threshold they relate to."),
		mcp.WithString("word",
			mcp.Description("Limit the report to one word: monitor, alarm or charger (default: all)"),
		),
		mcp.WithString("raw",
			mcp.Description("Decode this word value instead of reading the device (requires word)"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		word := req.GetString("word", "")
		rawArg := req.GetString("raw", "")
		params := map[string]any{"word": word, "raw": rawArg}

		fail := func(msg string) (*mcp.CallToolResult, error) {
			tools.LogAudit(audit, toolName, params, "error: "+msg, start)
			return tools.ErrorResult(msg), nil
		}

		if word == "" {
			if rawArg != "" {
				return fail("raw requires word")
			}
			report, err := ctrl.Report(ctx)
			if err != nil {
				return fail(err.Error())
			}
			tools.LogAudit(audit, toolName, params, "ok", start)
			return tools.JSONResult(report), nil
		}

		kind, err := status.ParseWordKind(word)
		if err != nil {
			return fail(err.Error())
		}

		if rawArg != "" {
			raw, err := strconv.ParseInt(rawArg, 0, 64)
			if err != nil {
				return fail(fmt.Sprintf("invalid raw value %q", rawArg))
			}
			tools.LogAudit(audit, toolName, params, "ok", start)
			return tools.JSONResult(status.Decode(kind, raw)), nil
		}

		wr, warnings, err := ctrl.Word(ctx, kind)
		if err != nil {
			return fail(err.Error())
		}
		tools.LogAudit(audit, toolName, params, "ok", start)
		return tools.JSONResult(struct {
			WordReport
			Warnings []string `json:"warnings,omitempty"`
		}{wr, warnings}), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func toolSensors(ctrl *Controller, audit *safety.AuditLogger) tools.Registration {
	const toolName = "supercap_sensors"

	tool := mcp.NewTool(toolName,
		mcp.WithDescription("Read every live measurement together with its upper and lower threshold levels."),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		params := map[string]any{}

		sensors, err := ctrl.Sensors(ctx)
		if err != nil {
			tools.LogAudit(audit, toolName, params, "error: "+err.Error(), start)
			return tools.ErrorResult(err.Error()), nil
		}

		tools.LogAudit(audit, toolName, params, "ok", start)
		return tools.JSONResult(sensors), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

// ---------------------------------------------------------------------------
// Tools that change device state
// ---------------------------------------------------------------------------

func toolWrite(ctrl *Controller, confirm *safety.ConfirmationTracker, audit *safety.AuditLogger) tools.Registration {
	const toolName = "supercap_write"

	tool := mcp.NewTool(toolName,
		mcp.WithDescription("Write a controller attribute, typically an alarm threshold level. The value is converted from the given unit to the raw LSB code. Requires a confirmation token."),
		mcp.WithString("attribute",
			mcp.Required(),
			mcp.Description("Attribute name, e.g. vcap_ov_lvl"),
		),
		mcp.WithNumber("value",
			mcp.Required(),
			mcp.Description("Value to write, an integer in unit"),
		),
		mcp.WithString("unit",
			mcp.Description("Unit of value: mV, F, C, mR, or empty to write the raw code"),
		),
		mcp.WithString("confirmation_token",
			mcp.Description("Confirmation token returned by a prior call with the same arguments"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		attr := req.GetString("attribute", "")
		value, hasValue, valueErr := intArg(req, "value")
		unit := req.GetString("unit", "")
		token := req.GetString("confirmation_token", "")
		params := map[string]any{"attribute": attr, "value": value, "unit": unit}

		fail := func(msg string) (*mcp.CallToolResult, error) {
			tools.LogAudit(audit, toolName, params, "error: "+msg, start)
			return tools.ErrorResult(msg), nil
		}

		if attr == "" {
			return fail("attribute is required")
		}
		if valueErr != nil {
			return fail(valueErr.Error())
		}
		if !hasValue {
			return fail("value is required")
		}

		// Refuse before prompting so a denied write never issues a token.
		if err := ctrl.filter.Check(attr); err != nil {
			return fail(fmt.Sprintf("%v: %v", ErrWriteDenied, err))
		}
		raw, err := measure.ToRaw(attr, value, unit)
		if err != nil {
			return fail(err.Error())
		}

		resource := fmt.Sprintf("%s=%d%s", attr, value, unit)
		desc := fmt.Sprintf("This will write raw code %d to %s (%s).", raw, attr, measure.FormatValue(attr, raw))
		if prompt, ok := tools.RequireConfirmation(confirm, token, toolName, resource, desc); !ok {
			tools.LogAudit(audit, toolName, params, "confirmation requested", start)
			return prompt, nil
		}

		result, err := ctrl.Write(ctx, attr, value, unit)
		if err != nil {
			return fail(err.Error())
		}

		tools.LogAudit(audit, toolName, params, "ok", start)
		return tools.JSONResult(result), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

// alarmResult is the supercap_alarms output.
type alarmResult struct {
	Action string   `json:"action"`
	Word   int64    `json:"word"`
	Alarms []string `json:"alarms"`
}

func toolAlarms(ctrl *Controller, confirm *safety.ConfirmationTracker, audit *safety.AuditLogger) tools.Registration {
	const toolName = "supercap_alarms"

	tool := mcp.NewTool(toolName,
		mcp.WithDescription("Clear latched alarms or set the alarm mask. clear acknowledges every active alarm; mask enables exactly the listed alarms. Requires a confirmation token."),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("Action to perform: clear or mask"),
		),
		mcp.WithString("alarms",
			mcp.Description("Comma-separated alarm names to enable for mask, e.g. vcap_uv,dtemp_hot. Empty disables all alarms."),
		),
		mcp.WithString("confirmation_token",
			mcp.Description("Confirmation token returned by a prior call with the same arguments"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		action := req.GetString("action", "")
		names := splitNames(req.GetString("alarms", ""))
		token := req.GetString("confirmation_token", "")
		params := map[string]any{"action": action, "alarms": names}

		fail := func(msg string) (*mcp.CallToolResult, error) {
			tools.LogAudit(audit, toolName, params, "error: "+msg, start)
			return tools.ErrorResult(msg), nil
		}

		var resource, desc string
		switch action {
		case "clear":
			resource = "clear"
			desc = "This will acknowledge every active alarm."
		case "mask":
			mask, err := status.Encode(status.AlarmRegister, names)
			if err != nil {
				return fail(err.Error())
			}
			resource = fmt.Sprintf("mask=%d", mask)
			if len(names) == 0 {
				desc = "This will disable every alarm."
			} else {
				desc = fmt.Sprintf("This will enable only these alarms: %s.", strings.Join(names, ", "))
			}
		default:
			return fail(fmt.Sprintf("unknown action %q: valid actions are clear, mask", action))
		}

		if prompt, ok := tools.RequireConfirmation(confirm, token, toolName, resource, desc); !ok {
			tools.LogAudit(audit, toolName, params, "confirmation requested", start)
			return prompt, nil
		}

		var word int64
		var err error
		if action == "clear" {
			word, err = ctrl.ClearAlarms(ctx)
		} else {
			word, err = ctrl.MaskAlarms(ctx, names)
		}
		if err != nil {
			if errors.Is(err, ErrWriteDenied) {
				return fail(err.Error())
			}
			return fail(fmt.Sprintf("%s alarms: %v", action, err))
		}

		active := make([]string, 0)
		for _, c := range status.Decode(status.AlarmRegister, word) {
			active = append(active, c.Name)
		}
		tools.LogAudit(audit, toolName, params, "ok", start)
		return tools.JSONResult(alarmResult{Action: action, Word: word, Alarms: active}), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func splitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
