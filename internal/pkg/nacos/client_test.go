package nacos

import "testing"

func TestParseServerConfigs(t *testing.T) {
	cfgs, err := ParseServerConfigs("10.0.0.1:8848, 10.0.0.2:8849")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfgs) != 2 {
		t.Fatalf("len = %d", len(cfgs))
	}
	if cfgs[0].IpAddr != "10.0.0.1" || cfgs[0].Port != 8848 || cfgs[1].Port != 8849 {
		t.Errorf("configs = %+v", cfgs)
	}
}

func TestParseServerConfigsRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "nohost", "host:port", "a:1:2"} {
		if _, err := ParseServerConfigs(in); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}
