package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderKey(t *testing.T) {
	assert.Equal(t, "date_accomplished", HeaderKey(" Date Accomplished "))
	assert.Equal(t, "brand_model", HeaderKey("Brand/Model"))
	assert.Equal(t, "no", HeaderKey("No."))
	assert.Equal(t, "", HeaderKey("  ---  "))
}

func TestParseTableLocatesColumnsByHeader(t *testing.T) {
	raw := json.RawMessage(`[["Month","Equipment Name","No."],["Sep","Oscilloscope",1],["Mar",null,2.5]]`)
	tbl, err := ParseTable(raw)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "Oscilloscope", tbl.Get(0, "equipment_name"))
	assert.Equal(t, "1", tbl.Get(0, "num", "no"))
	assert.Equal(t, "2.5", tbl.Get(1, "no"))
	assert.Equal(t, "", tbl.Get(1, "equipment_name"))
	assert.Equal(t, "", tbl.Get(5, "month"))
	assert.Equal(t, "", tbl.Get(0, "missing"))
	assert.Equal(t, "Mar", tbl.Records()[1]["month"])
}

func newFakeSheet(t *testing.T) (*SheetClient, *map[string]any) {
	t.Helper()
	last := map[string]any{}
	e := echo.New()
	e.GET("/exec", func(c echo.Context) error {
		switch c.QueryParam("sheet") {
		case SheetMaintenance:
			return c.JSON(http.StatusOK, echo.Map{"success": true, "data": [][]any{
				{"No", "Equipment", "Month", "Date Accomplished", "Accomplished By"},
				{1, "Oscilloscope", "Sep", "2024-09-01", "Tech A"},
				{2, "Multimeter", "Mar", "", ""},
			}})
		case SheetStaff:
			return c.JSON(http.StatusOK, echo.Map{"success": true, "data": [][]any{
				{"First Name", "Last Name", "Email"},
				{"Ana", "Cruz", "ana@lab.edu"},
			}})
		}
		return c.JSON(http.StatusOK, echo.Map{"success": false, "message": "unknown sheet"})
	})
	e.POST("/exec", func(c echo.Context) error {
		var body map[string]any
		_ = json.NewDecoder(c.Request().Body).Decode(&body)
		last = body
		last["query_action"] = c.QueryParam("action")
		if c.QueryParam("action") == ActionLogin {
			data := body["data"].(map[string]any)
			if data["password"] != "right" {
				return c.JSON(http.StatusOK, echo.Map{"success": false, "message": "Wrong password"})
			}
			return c.JSON(http.StatusOK, echo.Map{"success": true, "data": [][]any{
				{"Email", "Role", "First Name", "Last Name"},
				{"Staff@Lab.edu", "staff", "Ana", "Cruz"},
			}})
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	c, err := NewSheetClient(srv.URL+"/exec", time.Second, nil)
	require.NoError(t, err)
	return c, &last
}

func TestSheetClientMaintenanceAndStaff(t *testing.T) {
	c, _ := newFakeSheet(t)
	items, err := c.Maintenance(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].Num)
	assert.Equal(t, "Oscilloscope", items[0].EquipmentName)
	assert.Equal(t, "2024-09-01", items[0].DateAccomplished)
	assert.Equal(t, "", items[1].DateAccomplished)

	staff, err := c.Staff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana@lab.edu", staff[0].Email)
	assert.Equal(t, "Cruz", staff[0].LastName)
}

func TestSheetClientFailureEnvelope(t *testing.T) {
	c, _ := newFakeSheet(t)
	_, err := c.Read(context.Background(), "Nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSheetFailed))
	assert.Contains(t, err.Error(), "unknown sheet")
}

func TestSheetClientWritesAndLogin(t *testing.T) {
	c, last := newFakeSheet(t)
	require.NoError(t, c.UpdateMaintenance(context.Background(), "2", "2024-09-15", "Tech B"))
	assert.Equal(t, ActionUpdate, (*last)["query_action"])
	assert.Equal(t, SheetMaintenance, (*last)["sheet"])
	assert.Equal(t, "Tech B", (*last)["data"].(map[string]any)["accomplished_by"])

	id, err := c.Login(context.Background(), "staff@lab.edu", "right")
	require.NoError(t, err)
	assert.Equal(t, "staff@lab.edu", id.Email)
	assert.Equal(t, "STAFF", id.Role)
	assert.Equal(t, "Ana Cruz", id.Name)

	_, err = c.Login(context.Background(), "staff@lab.edu", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	assert.Contains(t, err.Error(), "Wrong password")
}
